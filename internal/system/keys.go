package system

import "encoding/binary"

const (
	evKey = 0x01

	// Linux input-event-codes.h
	KeyF2 = 60
	KeyF3 = 61
	KeyF4 = 62
	KeyF5 = 63
)

// KeyBindings maps evdev key codes to actions run on key press.
type KeyBindings map[uint16]func()

// keyPresses parses a buffer of input_event records (timeval + u16 type +
// u16 code + s32 value) and returns the codes of keys pressed down.
func keyPresses(buf []byte, tvSize int) []uint16 {
	eventSize := tvSize + 8
	var codes []uint16
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		rec := buf[off : off+eventSize]
		typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
		code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
		value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))
		if typ == evKey && value == 1 {
			codes = append(codes, code)
		}
	}
	return codes
}
