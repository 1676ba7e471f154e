// Package dispatch implements the JSON-line request loop: it reads one JSON
// object per input line, routes it to a tool handler, translates errors into
// the closed set of envelope shapes, enforces the response byte budget, and
// emits exactly one audit record per request.
package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/taggedzi/repo-mcp-go/internal/apperr"
	"github.com/taggedzi/repo-mcp-go/internal/audit"
	"github.com/taggedzi/repo-mcp-go/internal/policy"
	"github.com/taggedzi/repo-mcp-go/internal/tools"
)

// Envelope is the single response shape every request produces: success,
// explicit error, or blocked.
type Envelope struct {
	RequestID string                 `json:"request_id"`
	OK        bool                   `json:"ok"`
	Result    map[string]interface{} `json:"result"`
	Warnings  []string               `json:"warnings"`
	Blocked   bool                   `json:"blocked"`
	Error     *EnvelopeError         `json:"error,omitempty"`
}

// EnvelopeError carries the closed-set error code and message.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Dispatcher routes JSON-line requests to registered tool handlers.
type Dispatcher struct {
	handlers     map[string]tools.Handler
	audit        *audit.Logger
	limits       policy.Limits
	nextFallback int
}

// New builds a Dispatcher over the given tool handlers.
func New(handlers map[string]tools.Handler, auditLogger *audit.Logger, limits policy.Limits) *Dispatcher {
	return &Dispatcher{handlers: handlers, audit: auditLogger, limits: limits}
}

// Serve consumes newline-delimited JSON requests from in and writes
// newline-delimited JSON responses to out, one per request, until in is
// exhausted or ctx is cancelled. It stops after the in-flight request
// completes, with no partial writes.
func (d *Dispatcher) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}

		envelope := d.handleLine(ctx, line)
		encoded, err := json.Marshal(envelope)
		if err != nil {
			encoded, _ = json.Marshal(errorEnvelope(envelope.RequestID, apperr.InternalError, "failed to encode response"))
		}
		if _, err := writer.Write(encoded); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpaceByte(b[start]) {
		start++
	}
	for end > start && isSpaceByte(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (d *Dispatcher) handleLine(ctx context.Context, line []byte) Envelope {
	var payload interface{}
	if err := json.Unmarshal(line, &payload); err != nil {
		requestID := d.nextRequestID()
		envelope := errorEnvelope(requestID, apperr.InvalidJSON, "Request must be valid JSON.")
		d.recordAudit(requestID, "", envelope, nil)
		return envelope
	}

	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		requestID := d.nextRequestID()
		envelope := errorEnvelope(requestID, apperr.InvalidRequest, "Request must be an object.")
		d.recordAudit(requestID, "", envelope, nil)
		return envelope
	}

	requestID := d.extractRequestID(payloadMap["id"])

	methodVal, _ := payloadMap["method"]
	method, ok := methodVal.(string)
	if !ok || method == "" {
		envelope := errorEnvelope(requestID, apperr.InvalidRequest, "Request method must be a non-empty string.")
		d.recordAudit(requestID, "", envelope, nil)
		return envelope
	}

	params := map[string]interface{}{}
	if paramsVal, exists := payloadMap["params"]; exists {
		asMap, ok := paramsVal.(map[string]interface{})
		if !ok {
			envelope := errorEnvelope(requestID, apperr.InvalidParams, "Request params must be an object.")
			d.recordAudit(requestID, method, envelope, nil)
			return envelope
		}
		params = asMap
	}

	toolName, arguments, envelope := resolveToolCall(requestID, method, params)
	if envelope != nil {
		d.recordAudit(requestID, method, *envelope, arguments)
		return *envelope
	}

	handler, ok := d.handlers[toolName]
	if !ok {
		envelope := errorEnvelope(requestID, apperr.UnknownTool, fmt.Sprintf("Unknown tool: %s", toolName))
		d.recordAudit(requestID, toolName, envelope, arguments)
		return envelope
	}

	result, err := handler(ctx, arguments)
	envelope2 := d.buildResultEnvelope(requestID, result, err)
	d.recordAudit(requestID, toolName, envelope2, arguments)
	return envelope2
}

// resolveToolCall normalizes either a direct tool-name method or the
// "tools/call" wrapper form into (toolName, arguments). A non-nil envelope
// return means validation failed and the caller should return it as-is.
func resolveToolCall(requestID, method string, params map[string]interface{}) (string, map[string]interface{}, *Envelope) {
	if method != "tools/call" {
		return method, params, nil
	}

	nameVal, _ := params["name"]
	name, ok := nameVal.(string)
	if !ok || name == "" {
		envelope := errorEnvelope(requestID, apperr.InvalidParams, "tools/call params.name must be a non-empty string.")
		return "", nil, &envelope
	}

	arguments := map[string]interface{}{}
	if argsVal, exists := params["arguments"]; exists {
		asMap, ok := argsVal.(map[string]interface{})
		if !ok {
			envelope := errorEnvelope(requestID, apperr.InvalidParams, "tools/call params.arguments must be an object.")
			return "", nil, &envelope
		}
		arguments = asMap
	}
	return name, arguments, nil
}

func (d *Dispatcher) buildResultEnvelope(requestID string, result map[string]interface{}, err error) Envelope {
	if err != nil {
		return d.translateError(requestID, err)
	}

	warnings := []string{}
	if raw, ok := result["__warnings__"]; ok {
		delete(result, "__warnings__")
		if list, ok := raw.([]string); ok {
			warnings = list
		}
	}

	envelope := Envelope{
		RequestID: requestID,
		OK:        true,
		Result:    result,
		Warnings:  warnings,
		Blocked:   false,
	}

	return d.enforceResponseSize(envelope)
}

func (d *Dispatcher) translateError(requestID string, err error) Envelope {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperr.PathBlocked:
			return Envelope{
				RequestID: requestID,
				OK:        false,
				Result:    map[string]interface{}{"reason": appErr.Message, "hint": appErr.Hint},
				Warnings:  []string{},
				Blocked:   true,
				Error:     &EnvelopeError{Code: string(apperr.PathBlocked), Message: appErr.Message},
			}
		case apperr.IndexSchemaUnsupported:
			return errorEnvelope(requestID, apperr.IndexSchemaUnsupported,
				appErr.Message+" Call repo.refresh_index with force=true to rebuild.")
		case apperr.InvalidParams, apperr.InvalidRequest, apperr.UnknownTool:
			return errorEnvelope(requestID, appErr.Code, appErr.Message)
		default:
			return errorEnvelope(requestID, apperr.InternalError, "An internal error occurred.")
		}
	}
	return errorEnvelope(requestID, apperr.InternalError, "An internal error occurred.")
}

// enforceResponseSize measures the encoded envelope and replaces it with a
// blocked envelope if it exceeds the configured byte budget.
func (d *Dispatcher) enforceResponseSize(envelope Envelope) Envelope {
	encoded, err := json.Marshal(envelope)
	if err != nil || int64(len(encoded)) <= d.limits.MaxTotalBytesPerResponse {
		return envelope
	}

	return Envelope{
		RequestID: envelope.RequestID,
		OK:        false,
		Result: map[string]interface{}{
			"reason": "Response exceeds max_total_bytes_per_response.",
			"hint":   "Request a narrower range, smaller top_k, or tighter bundle budget.",
		},
		Warnings: []string{},
		Blocked:  true,
		Error:    &EnvelopeError{Code: string(apperr.PathBlocked), Message: "Response exceeds max_total_bytes_per_response."},
	}
}

func (d *Dispatcher) recordAudit(requestID, tool string, envelope Envelope, arguments map[string]interface{}) {
	if d.audit == nil {
		return
	}
	var errorCode *string
	if envelope.Error != nil {
		code := envelope.Error.Code
		errorCode = &code
	}
	_ = d.audit.Append(audit.Event{
		Timestamp: audit.UTCTimestamp(),
		RequestID: requestID,
		Tool:      tool,
		OK:        envelope.OK,
		Blocked:   envelope.Blocked,
		ErrorCode: errorCode,
		Metadata:  audit.SanitizeArguments(arguments),
	})
}

func (d *Dispatcher) extractRequestID(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%d", int64(v))
	case int:
		return fmt.Sprintf("%d", v)
	}
	return d.nextRequestID()
}

func (d *Dispatcher) nextRequestID() string {
	d.nextFallback++
	return fmt.Sprintf("req-%06d", d.nextFallback)
}

func errorEnvelope(requestID string, code apperr.Code, message string) Envelope {
	return Envelope{
		RequestID: requestID,
		OK:        false,
		Result:    map[string]interface{}{},
		Warnings:  []string{},
		Blocked:   false,
		Error:     &EnvelopeError{Code: string(code), Message: message},
	}
}
