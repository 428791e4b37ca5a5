package bridge

import (
	"context"
	"encoding/json"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/session"
)

// SessionHandler serves host requests against s.
func SessionHandler(s *session.Session) Handler {
	return HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		switch method {
		case MethodOpenFolder:
			var p PathParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return s.OpenFolder(ctx, p.Path)

		case MethodActivate:
			var p CollectionParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return s.Activate(ctx, p.CollectionID)

		case MethodClose:
			var p CollectionParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			if err := s.Close(p.CollectionID); err != nil {
				return nil, err
			}
			return s.Snapshot(), nil

		case MethodClick:
			var p ClickParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			if err := s.Click(p.CollectionID, p.Key, p.Modifiers); err != nil {
				return nil, err
			}
			return s.Snapshot(), nil

		case MethodStep:
			var p StepParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			key, moved, err := s.Step(p.CollectionID, p.Delta, p.Extend)
			return StepResult{Key: key, Moved: moved}, err

		case MethodPlace:
			return s.PlaceSelected(ctx)

		case MethodPlaceSingle:
			var p PlaceSingleParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return s.PlaceSingle(ctx, p.CollectionID, p.Key)

		case MethodRefresh:
			var p CollectionParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return s.Refresh(ctx, p.CollectionID)

		case MethodSnapshot:
			return s.Snapshot(), nil

		case MethodStats:
			var p CollectionParams
			if err := decode(params, &p); err != nil {
				return nil, err
			}
			return s.Stats(p.CollectionID)

		case MethodDiagnostics:
			return s.Diagnostics(ctx)
		}
		return nil, ErrMethodNotFound
	})
}

func decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid params")
	}
	return nil
}
