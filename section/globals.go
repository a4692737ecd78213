package section

import (
	"github.com/adam-bouafia/logsim/encoding"
	"github.com/adam-bouafia/logsim/errs"
)

// Globals holds the container-global dictionaries: the severity dictionary
// (surface forms encountered, ids by first appearance) and the message
// token pool shared by MESSAGE and QUOTED_STRING columns across templates.
type Globals struct {
	Severity *encoding.Dictionary
	Messages *encoding.Dictionary
}

// NewGlobals creates empty global dictionaries.
func NewGlobals() *Globals {
	return &Globals{
		Severity: encoding.NewDictionary(),
		Messages: encoding.NewDictionary(),
	}
}

// Pool returns the dictionary for the given pool id from the
// CodecDictGlobal block header.
func (g *Globals) Pool(poolID uint8) (*encoding.Dictionary, bool) {
	switch poolID {
	case 0:
		return g.Severity, true
	case 1:
		return g.Messages, true
	default:
		return nil, false
	}
}

// AppendTo serializes both dictionaries, severity first.
func (g *Globals) AppendTo(dst []byte) []byte {
	dst = g.Severity.AppendTo(dst)
	dst = g.Messages.AppendTo(dst)

	return dst
}

// ParseGlobals reads the global dictionary section starting at off.
// base is the absolute decoded-layout position of data[0].
func ParseGlobals(data []byte, off int, base int64) (*Globals, int, error) {
	severity, off, err := encoding.ParseDictionary(data, off)
	if err != nil {
		return nil, 0, errs.Format(err, "global_dictionaries", base+int64(off), "severity dictionary")
	}
	messages, off, err := encoding.ParseDictionary(data, off)
	if err != nil {
		return nil, 0, errs.Format(err, "global_dictionaries", base+int64(off), "message token pool")
	}

	return &Globals{Severity: severity, Messages: messages}, off, nil
}
