package mqtt

import "github.com/sweeney/dome-weather/internal/weather"

// FakePublisher stands in for the broker in tests. It keeps every weather
// record and lifecycle event it is handed, with the payloads a real
// Publisher would have sent for them.
type FakePublisher struct {
	Records  []weather.Record
	Payloads [][]byte // record JSON, one per entry in Records
	// SafeFlags mirrors the retained safe topic: one flag per record.
	SafeFlags []bool

	SystemEvents   []SystemEvent // STARTUP, SHUTDOWN, HEARTBEAT, ...
	SystemPayloads [][]byte

	// Injected failures; a failed publish keeps nothing.
	PublishError       error
	PublishSystemError error

	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish keeps rec with its record payload and safe flag.
func (f *FakePublisher) Publish(rec weather.Record) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := weather.FormatRecord(rec)
	if err != nil {
		return err
	}
	f.Records = append(f.Records, rec)
	f.Payloads = append(f.Payloads, payload)
	f.SafeFlags = append(f.SafeFlags, rec.Verdict.Safe)
	return nil
}

// Latest returns the most recently published record.
func (f *FakePublisher) Latest() (weather.Record, bool) {
	if len(f.Records) == 0 {
		return weather.Record{}, false
	}
	return f.Records[len(f.Records)-1], true
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
