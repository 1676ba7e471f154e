package tools

import "context"

func auditLogHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		since, _ := argString(args, "since")
		limit, hasLimit := argInt(args, "limit")
		if !hasLimit || limit <= 0 {
			limit = 100
		}

		events, err := deps.Audit.Read(since, limit)
		if err != nil {
			return nil, err
		}

		out := make([]map[string]interface{}, len(events))
		for i, e := range events {
			out[i] = map[string]interface{}{
				"timestamp":  e.Timestamp,
				"request_id": e.RequestID,
				"tool":       e.Tool,
				"ok":         e.OK,
				"blocked":    e.Blocked,
				"error_code": e.ErrorCode,
				"metadata":   e.Metadata,
			}
		}

		return map[string]interface{}{
			"events": out,
		}, nil
	}
}
