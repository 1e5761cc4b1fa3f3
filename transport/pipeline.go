package transport

import (
	"reflect"

	"github.com/MaTriXy/wasync/decoder"
	"github.com/MaTriXy/wasync/dispatch"
	"github.com/MaTriXy/wasync/request"
)

// Deliver runs one inbound (event, payload) pair through req's decoder
// chain and, unless a stage aborted it, through function dispatch (spec
// §4.3, §4.4). handle is passed to callbacks that declare a leading
// socket-handle argument.
func Deliver(req *request.Request, handle any, event decoder.Event, payload any, log logRecorder) {
	out, aborted, err := req.Decoders.Run(event, payload)
	if err != nil {
		log.recordDecodeErr(err)
	}
	if aborted {
		return
	}

	var declaredType reflect.Type
	if out != nil {
		declaredType = reflect.TypeOf(out)
	}

	dispatch.Dispatch(handle, req.Registry, declaredType, out, event.String(), req.Resolver)
}

// logRecorder is the minimal logging surface Deliver needs; Base
// satisfies it via recordDecodeErr below.
type logRecorder interface {
	recordDecodeErr(err error)
}

// recordDecodeErr implements logRecorder on Base, logging decode-stage
// errors as verbosity-1 info lines without aborting the pipeline (spec
// §4.2, §7 "Decoder" row).
func (b *Base) recordDecodeErr(err error) {
	b.Log.V(1).Info("decoder stage error", "error", err.Error())
}
