// internal/history/service_test.go
package history

import "testing"

func TestServiceData_MarshalDecode(t *testing.T) {
	d := ServiceData{Size: 3, OffsetOfLast: 7, TimeOfLast: 123456}
	b := d.marshal()

	got, state := decodeServiceData(b[:])
	if state != Validated {
		t.Fatalf("state = %v, want validated", state)
	}
	if got != d {
		t.Fatalf("decoded %+v, want %+v", got, d)
	}
}

func TestServiceData_ErasedIsNeverWritten(t *testing.T) {
	erased := make([]byte, HeaderSize)
	for i := range erased {
		erased[i] = 0xFF
	}
	if _, state := decodeServiceData(erased); state != NeverWritten {
		t.Fatalf("all-0xFF header: state = %v, want never-written", state)
	}

	if _, state := decodeServiceData(make([]byte, HeaderSize)); state != NeverWritten {
		t.Fatalf("all-0x00 header: state = %v, want never-written", state)
	}
}

func TestServiceData_BitFlipIsCorrupt(t *testing.T) {
	d := ServiceData{Size: 1, OffsetOfLast: 1, TimeOfLast: 60}
	b := d.marshal()
	b[5] ^= 0x01

	got, state := decodeServiceData(b[:])
	if state != Corrupt {
		t.Fatalf("state = %v, want corrupt", state)
	}
	if got != (ServiceData{}) {
		t.Fatalf("corrupt decode must yield empty data, got %+v", got)
	}
}
