package system

import (
	"encoding/binary"
	"errors"
	"testing"
)

func inputEvent(tvSize int, typ, code uint16, value int32) []byte {
	rec := make([]byte, tvSize+8)
	binary.LittleEndian.PutUint16(rec[tvSize:], typ)
	binary.LittleEndian.PutUint16(rec[tvSize+2:], code)
	binary.LittleEndian.PutUint32(rec[tvSize+4:], uint32(value))
	return rec
}

func TestKeyPresses(t *testing.T) {
	for _, tvSize := range []int{8, 16} {
		var buf []byte
		buf = append(buf, inputEvent(tvSize, evKey, KeyF4, 1)...)
		buf = append(buf, inputEvent(tvSize, evKey, KeyF4, 0)...) // release
		buf = append(buf, inputEvent(tvSize, 0x00, 0, 0)...)      // EV_SYN
		buf = append(buf, inputEvent(tvSize, evKey, KeyF2, 1)...)
		buf = append(buf, 0x01, 0x02) // trailing partial record

		got := keyPresses(buf, tvSize)
		if len(got) != 2 || got[0] != KeyF4 || got[1] != KeyF2 {
			t.Fatalf("tvSize %d: presses = %v", tvSize, got)
		}
	}
}

type recordingLogger struct{ infos, errors []string }

func (l *recordingLogger) Infof(component, format string, args ...interface{}) {
	l.infos = append(l.infos, component+": "+format)
}

func (l *recordingLogger) Errorf(component, format string, args ...interface{}) {
	l.errors = append(l.errors, component+": "+format)
}

func TestLogResult(t *testing.T) {
	l := &recordingLogger{}
	if err := logResult(l, nil, "done", "failed"); err != nil {
		t.Fatal(err)
	}
	if err := logResult(l, errNoConsoleForTest, "done", "failed"); err != errNoConsoleForTest {
		t.Fatalf("err = %v", err)
	}
	if len(l.infos) != 1 || len(l.errors) != 1 {
		t.Fatalf("infos=%v errors=%v", l.infos, l.errors)
	}
}

var errNoConsoleForTest = errors.New("no console")
