package engine

import "fmt"

type Request struct {
	Audio []byte
	// MIME and Ext are sniffed from the payload by the caller. Engines may use
	// them as hints (file naming, labels) but must not reject on them.
	MIME string
	Ext  string
}

type Stems struct {
	Vocals        []byte
	Accompaniment []byte
}

type Error struct {
	Engine     string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("separation failed on %s engine with status %d", e.Engine, e.StatusCode)
	}
	return fmt.Sprintf("separation failed on %s engine", e.Engine)
}

func (e *Error) Unwrap() error { return e.Err }
