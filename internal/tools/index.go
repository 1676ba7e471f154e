package tools

import "context"

func refreshIndexHandler(deps Deps) Handler {
	return func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		force, _ := argBool(args, "force")

		result, err := deps.Store.Refresh(ctx, deps.Config, force)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"added":           result.Added,
			"updated":         result.Updated,
			"removed":         result.Removed,
			"duration_ms":     result.DurationMS,
			"timestamp":       result.Timestamp,
			"refresh_profile": result.RefreshProfile,
		}, nil
	}
}
