package obs

import (
	"io"
	"log"
	"os"
)

// InitLogging points the standard logger at w (stdout when nil) with
// microsecond timestamps. Commands that write results to stdout pass os.Stderr.
func InitLogging(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
