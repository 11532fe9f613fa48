// Command cellguard-ffi builds the monitor as a C shared library.
//
// Build with:
//
//	go build -buildmode=c-shared -o libcellguard.so ./cmd/cellguard-ffi
//
// Every export follows the same convention: inputs are byte buffers with
// explicit lengths, identifiers are 16-byte little-endian UUIDs, and the
// return value is one of the stable error codes. On failure the message is
// retrievable through last_error.
package main

/*
#include <stdint.h>
#include <stddef.h>
#include <stdbool.h>
*/
import "C"

import (
	"unsafe"

	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/message"
	"mercator-hq/cellguard/pkg/monitor"
)

const uuidLen = 16

func goBytes(p *C.uint8_t, n C.size_t) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n))
}

// fail records the error and returns its code.
func fail(err error) C.int32_t {
	errcode.SetLast(err.Error())
	return C.int32_t(errcode.CodeOf(err))
}

func ok() C.int32_t {
	return C.int32_t(errcode.Success)
}

// readUUID decodes a 16-byte identifier buffer.
func readUUID(p *C.uint8_t, n C.size_t) (uuid.UUID, *C.int32_t) {
	if p == nil || n < uuidLen {
		code := fail(errcode.New(errcode.InvalidOperation, "UUID buffer must hold %d bytes", uuidLen))
		return uuid.Nil, &code
	}
	id, err := message.UUIDFromLE(goBytes(p, uuidLen))
	if err != nil {
		code := fail(err)
		return uuid.Nil, &code
	}
	return id, nil
}

// writeUUID encodes an identifier into the host's buffer.
func writeUUID(id uuid.UUID, p *C.uint8_t, n C.size_t) *C.int32_t {
	if p == nil || n < uuidLen {
		code := fail(errcode.New(errcode.InvalidOperation, "UUID buffer must hold %d bytes", uuidLen))
		return &code
	}
	le := message.UUIDToLE(id)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(p)), uuidLen)
	copy(dst, le)
	return nil
}

func getContext(p *C.uint8_t, n C.size_t) (*monitor.Context, *C.int32_t) {
	id, code := readUUID(p, n)
	if code != nil {
		return nil, code
	}
	ctx, err := monitor.Instance().Get(id)
	if err != nil {
		c := fail(err)
		return nil, &c
	}
	return ctx, nil
}

//export open_new
func open_new(outUUID *C.uint8_t, uuidBufLen C.size_t) C.int32_t {
	id, err := monitor.Instance().OpenNew()
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, uuidBufLen); code != nil {
		return *code
	}
	return ok()
}

//export register_policy_dataframe
func register_policy_dataframe(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, df *C.uint8_t, dfLen C.size_t, outUUID *C.uint8_t, outUUIDLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	id, err := ctx.RegisterPolicyFrame(goBytes(df, dfLen))
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, outUUIDLen); code != nil {
		return *code
	}
	return ok()
}

//export register_policy_dataframe_from_row_group
func register_policy_dataframe_from_row_group(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, path *C.uint8_t, pathLen C.size_t, rowGroup C.size_t, outUUID *C.uint8_t, outUUIDLen C.size_t, projection *C.size_t, projectionLen C.size_t, selection *C.bool, selectionLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	var proj []int
	if projection != nil && projectionLen > 0 {
		src := unsafe.Slice(projection, int(projectionLen))
		proj = make([]int, len(src))
		for i, v := range src {
			proj[i] = int(v)
		}
	}
	var sel []bool
	if selection != nil && selectionLen > 0 {
		src := unsafe.Slice(selection, int(selectionLen))
		sel = make([]bool, len(src))
		for i, v := range src {
			sel[i] = bool(v)
		}
	}
	id, err := ctx.RegisterPolicyFrameFromRowGroup(string(goBytes(path, pathLen)), int(rowGroup), proj, sel)
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, outUUIDLen); code != nil {
		return *code
	}
	return ok()
}

//export expr_from_args
func expr_from_args(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, args *C.uint8_t, argsLen C.size_t, outUUID *C.uint8_t, outUUIDLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	id, err := ctx.ExprFromArgs(goBytes(args, argsLen))
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, outUUIDLen); code != nil {
		return *code
	}
	return ok()
}

//export build_plan
func build_plan(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, args *C.uint8_t, argsLen C.size_t, outUUID *C.uint8_t, outUUIDLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	id, err := ctx.BuildPlan(goBytes(args, argsLen))
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, outUUIDLen); code != nil {
		return *code
	}
	return ok()
}

//export reify_expression
func reify_expression(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, exprUUID *C.uint8_t, exprUUIDLen C.size_t, value *C.uint8_t, valueLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	exprID, code := readUUID(exprUUID, exprUUIDLen)
	if code != nil {
		return *code
	}
	if err := ctx.ReifyExpression(exprID, goBytes(value, valueLen)); err != nil {
		return fail(err)
	}
	return ok()
}

//export execute_epilogue
func execute_epilogue(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, planArg *C.uint8_t, planArgLen C.size_t, inputUUID *C.uint8_t, inputUUIDLen C.size_t, outUUID *C.uint8_t, outUUIDLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	inputID, code := readUUID(inputUUID, inputUUIDLen)
	if code != nil {
		return *code
	}
	id, err := ctx.ExecuteEpilogue(goBytes(planArg, planArgLen), inputID)
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, outUUIDLen); code != nil {
		return *code
	}
	return ok()
}

//export early_projection
func early_projection(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, dfUUID *C.uint8_t, dfUUIDLen C.size_t, projectList *C.size_t, projectListLen C.size_t, outUUID *C.uint8_t, outUUIDLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	dfID, code := readUUID(dfUUID, dfUUIDLen)
	if code != nil {
		return *code
	}
	var proj []int
	if projectList != nil && projectListLen > 0 {
		src := unsafe.Slice(projectList, int(projectListLen))
		proj = make([]int, len(src))
		for i, v := range src {
			proj[i] = int(v)
		}
	}
	id, err := ctx.EarlyProjection(dfID, proj)
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, outUUIDLen); code != nil {
		return *code
	}
	return ok()
}

//export create_slice
func create_slice(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, dfUUID *C.uint8_t, dfUUIDLen C.size_t, start C.size_t, end C.size_t, outUUID *C.uint8_t, outUUIDLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	dfID, code := readUUID(dfUUID, dfUUIDLen)
	if code != nil {
		return *code
	}
	id, err := ctx.CreateSlice(dfID, int(start), int(end))
	if err != nil {
		return fail(err)
	}
	if code := writeUUID(id, outUUID, outUUIDLen); code != nil {
		return *code
	}
	return ok()
}

//export finalize
func finalize(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, dfUUID *C.uint8_t, dfUUIDLen C.size_t) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	dfID, code := readUUID(dfUUID, dfUUIDLen)
	if code != nil {
		return *code
	}
	if err := ctx.Finalize(dfID); err != nil {
		return fail(err)
	}
	return ok()
}

//export enable_profiling
func enable_profiling(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, enable C.bool) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	ctx.EnableProfiling(bool(enable))
	return ok()
}

//export enable_tracing
func enable_tracing(ctxUUID *C.uint8_t, ctxUUIDLen C.size_t, enable C.bool) C.int32_t {
	ctx, code := getContext(ctxUUID, ctxUUIDLen)
	if code != nil {
		return *code
	}
	if err := ctx.EnableTracing(bool(enable)); err != nil {
		return fail(err)
	}
	return ok()
}

//export last_error
func last_error(errMsg *C.uint8_t, errMsgLen *C.size_t) {
	msg := []byte(errcode.Last())
	if errMsg == nil || errMsgLen == nil {
		return
	}
	n := int(*errMsgLen)
	if len(msg) < n {
		n = len(msg)
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(errMsg)), n)
	copy(dst, msg[:n])
	*errMsgLen = C.size_t(n)
}

func main() {}
