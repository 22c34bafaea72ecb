package aag

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/dome-weather/internal/port"
)

// script answers each command with the next queued response; the last one repeats.
type script map[string][]string

func (s script) respond(cmd string) string {
	queue := s[cmd]
	if len(queue) == 0 {
		return ""
	}
	resp := queue[0]
	if len(queue) > 1 {
		s[cmd] = queue[1:]
	}
	return resp
}

type sleepRecorder struct {
	calls []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) { r.calls = append(r.calls, d) }

func (r *sleepRecorder) count(d time.Duration) int {
	n := 0
	for _, c := range r.calls {
		if c == d {
			n++
		}
	}
	return n
}

func newTestClient(s script) (*Client, *port.FakePort, *sleepRecorder) {
	fp := port.NewFakePort(s.respond)
	rec := &sleepRecorder{}
	return NewClient(fp, WithSleep(rec.sleep)), fp, rec
}

func TestQuery_FirstAttemptMatch(t *testing.T) {
	c, fp, rec := newTestClient(script{"!S": {"!1      -1234!"}})

	got := c.Query(CmdSkyTemperature, 5)
	if len(got) != 1 || got[0] != "-1234" {
		t.Fatalf("Query = %v, want [-1234]", got)
	}
	if n := len(fp.Commands()); n != 1 {
		t.Errorf("sent %d commands, want 1", n)
	}
	if rec.count(DefaultQueryDelay) != 1 {
		t.Errorf("sleeps = %v, want one default query delay", rec.calls)
	}
	if rec.count(DefaultHibernate) != 0 {
		t.Errorf("unexpected hibernate sleep: %v", rec.calls)
	}
}

func TestQuery_RetriesThenMatches(t *testing.T) {
	c, fp, rec := newTestClient(script{"!T": {"", "garbage", "!2     2150!"}})

	got := c.Query(CmdAmbientTemp, 5)
	if len(got) != 1 || got[0] != "2150" {
		t.Fatalf("Query = %v, want [2150]", got)
	}
	if n := len(fp.Commands()); n != 3 {
		t.Errorf("sent %d commands, want 3", n)
	}
	if n := rec.count(DefaultHibernate); n != 2 {
		t.Errorf("hibernate sleeps = %d, want 2", n)
	}
}

func TestQuery_ExhaustsAttempts(t *testing.T) {
	c, fp, rec := newTestClient(script{})

	if got := c.Query(CmdSkyTemperature, 5); got != nil {
		t.Fatalf("Query = %v, want nil", got)
	}
	if n := len(fp.Commands()); n != 5 {
		t.Errorf("sent %d commands, want exactly 5", n)
	}
	if n := rec.count(DefaultHibernate); n != 5 {
		t.Errorf("hibernate sleeps = %d, want 5", n)
	}
}

func TestQuery_UnknownCommand(t *testing.T) {
	c, fp, rec := newTestClient(script{})

	if got := c.Query(CommandID("!Z"), 5); got != nil {
		t.Fatalf("Query = %v, want nil", got)
	}
	if n := len(fp.Commands()); n != 0 {
		t.Errorf("sent %d commands, want 0", n)
	}
	if len(rec.calls) != 0 {
		t.Errorf("unexpected sleeps: %v", rec.calls)
	}
}

func TestQuery_PerCommandDelay(t *testing.T) {
	c, _, rec := newTestClient(script{"!E": {"!R     2800!"}})

	if got := c.Query(CmdRainFrequency, 5); got == nil {
		t.Fatal("Query returned nil")
	}
	if rec.count(350*time.Millisecond) != 1 {
		t.Errorf("sleeps = %v, want one 350ms delay", rec.calls)
	}
}

func TestQuery_SetPWMEncoding(t *testing.T) {
	c, fp, _ := newTestClient(script{"P0512!": {"!Q      512!"}})

	got := c.QueryArg(CmdSetPWM, 512, 5)
	if len(got) != 1 || got[0] != "512" {
		t.Fatalf("QueryArg = %v", got)
	}
	if cmds := fp.Commands(); cmds[0] != "P0512!" {
		t.Errorf("wire = %q, want P0512!", cmds[0])
	}
}

func TestQuery_MultipleGroups(t *testing.T) {
	c, _, _ := newTestClient(script{"!D": {"!E1       0!E2       3!E3      12!E4       1!"}})

	got := c.Query(CmdErrors, 1)
	want := []string{"0", "3", "12", "1"}
	if len(got) != len(want) {
		t.Fatalf("Query = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSend_StripsHandshake(t *testing.T) {
	c, _, _ := newTestClient(script{"!S": {"!1      -1234!\x11            0"}})

	if got := c.Send("!S", 0); got != "!1      -1234!" {
		t.Errorf("Send = %q", got)
	}
}

func TestSend_DiscardsStaleInput(t *testing.T) {
	c, fp, _ := newTestClient(script{"!S": {"!1      -1234!"}})
	fp.InjectStale("!2     2150!")

	got := c.Query(CmdSkyTemperature, 1)
	if len(got) != 1 || got[0] != "-1234" {
		t.Fatalf("Query = %v, want [-1234]", got)
	}
	if fp.Resets != 1 {
		t.Errorf("resets = %d, want 1", fp.Resets)
	}
}

func TestSend_InvalidUTF8(t *testing.T) {
	c, _, _ := newTestClient(script{"!S": {"\xff\xfe"}})

	if got := c.Send("!S", 0); got != "" {
		t.Errorf("Send = %q, want empty", got)
	}
}

func TestSend_WriteError(t *testing.T) {
	c, fp, _ := newTestClient(script{"!S": {"!1      -1234!"}})
	fp.WriteError = errors.New("unplugged")

	if got := c.Send("!S", 0); got != "" {
		t.Errorf("Send = %q, want empty", got)
	}
}

func TestRaw(t *testing.T) {
	c, fp, _ := newTestClient(script{
		"!A":     {"!N CloudWatcher!"},
		"P0100!": {"!Q      100!"},
		"!S":     {"!1      -1234!"},
	})

	if got := c.Raw("!A", 1); len(got) != 1 || got[0] != "CloudWatcher" {
		t.Errorf("Raw(!A) = %v", got)
	}
	if got := c.Raw("!S", 1); len(got) != 1 || got[0] != "-1234" {
		t.Errorf("Raw(!S) = %v", got)
	}
	if got := c.Raw("S!", 1); got != nil {
		t.Errorf("Raw(S!) = %v, want nil", got)
	}
	if got := c.Raw("P0100!", 1); len(got) != 1 || got[0] != "100" {
		t.Errorf("Raw(P0100!) = %v", got)
	}
	if got := c.Raw("!?", 1); got != nil {
		t.Errorf("Raw(!?) = %v, want nil", got)
	}
	if n := len(fp.Commands()); n != 3 {
		t.Errorf("sent %d commands, want 3", n)
	}
}

func TestParseWire(t *testing.T) {
	tests := []struct {
		wire string
		id   CommandID
		arg  int
		ok   bool
	}{
		{"!C", CmdValues, 0, true},
		{" V! ", CmdWindSpeed, 0, true},
		{"P1023!", CmdSetPWM, 1023, true},
		{"P12!", "", 0, false},
		{"!Z", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			cmd, arg, ok := ParseWire(tt.wire)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if cmd.ID != tt.id || arg != tt.arg {
				t.Errorf("got (%s, %d), want (%s, %d)", cmd.ID, arg, tt.id, tt.arg)
			}
		})
	}
}

func TestCommandTable_Complete(t *testing.T) {
	ids := []CommandID{
		CmdName, CmdFirmware, CmdValues, CmdErrors, CmdRainFrequency,
		CmdSwitchStatus, CmdSwitchOpen, CmdSwitchClosed, CmdSetPWM, CmdGetPWM,
		CmdSkyTemperature, CmdAmbientTemp, CmdResetBuffer, CmdSerialNumber,
		CmdAnemometerEnabled, CmdWindSpeed, CmdConstants,
	}
	for _, id := range ids {
		cmd, ok := Lookup(id)
		if !ok {
			t.Errorf("%s missing from table", id)
			continue
		}
		if cmd.ID != id || cmd.Expect == nil || cmd.Description == "" {
			t.Errorf("%s: incomplete row %+v", id, cmd)
		}
	}
}
