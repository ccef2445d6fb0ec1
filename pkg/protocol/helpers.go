package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewPositionMessage creates a position message
func NewPositionMessage(p PositionData) (*Message, error) {
	return NewMessage(TypePosition, p)
}

// NewSamplesMessage creates a samples message
func NewSamplesMessage(samples []SampleData) (*Message, error) {
	return NewMessage(TypeSamples, SamplesData{Samples: samples})
}

// NewStateMessage creates a state message
func NewStateMessage(s StateData) (*Message, error) {
	return NewMessage(TypeState, s)
}

// NewSubscribeMessage creates a subscribe message. A negative slot selects
// the tracker default.
func NewSubscribeMessage(slot int, samples bool) (*Message, error) {
	data := SubscribeData{Samples: samples}
	if slot >= 0 {
		data.Slot = &slot
	}
	return NewMessage(TypeSubscribe, data)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetPositionData extracts position data from a message
func (m *Message) GetPositionData() (*PositionData, error) {
	var data PositionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSamplesData extracts samples from a message
func (m *Message) GetSamplesData() (*SamplesData, error) {
	var data SamplesData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSubscribeData extracts subscription settings from a message
func (m *Message) GetSubscribeData() (*SubscribeData, error) {
	var data SubscribeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
