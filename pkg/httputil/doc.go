// Package httputil holds the JSON plumbing shared by the HTTP handlers.
//
// Errors are written as
//
//	{"error": {"code": "INVALID_SPEC", "message": "joint \"x\": unknown parent"}}
//
// with a status derived from the error code by [Status]. Request bodies
// are decoded strictly by [DecodeJSON]: unknown fields, trailing data and
// oversized bodies are rejected.
package httputil
