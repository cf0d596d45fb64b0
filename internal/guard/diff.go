package guard

import (
	"fmt"

	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/policy"
)

// applyTaskDiff folds a validated field diff into the task copy. Values
// arrive as decoded JSON, so numbers may be float64.
func applyTaskDiff(t *model.Task, diff policy.Diff) error {
	for field, value := range diff {
		switch field {
		case policy.FieldTitle:
			s, ok := value.(string)
			if !ok {
				return badField(field)
			}
			t.Title = s
		case policy.FieldStatus:
			s, ok := value.(string)
			if !ok {
				return badField(field)
			}
			t.Status = model.TaskStatus(s)
		case policy.FieldAssignedTo:
			s, ok := value.(string)
			if !ok {
				return badField(field)
			}
			t.AssignedTo = s
		case policy.FieldRequiresPhoto:
			b, ok := value.(bool)
			if !ok {
				return badField(field)
			}
			t.RequiresPhoto = b
		case policy.FieldRewardPoints:
			n, ok := intValue(value)
			if !ok {
				return badField(field)
			}
			t.RewardPoints = n
		case policy.FieldPhotoValidation:
			s, ok := value.(string)
			if !ok {
				return badField(field)
			}
			ps := model.PhotoStatus(s)
			t.PhotoValidationStatus = &ps
		case policy.FieldPhotoValidatedBy:
			s, ok := value.(string)
			if !ok {
				return badField(field)
			}
			t.PhotoValidatedBy = &s
		case policy.FieldPhotoRef:
			s, ok := value.(string)
			if !ok {
				return badField(field)
			}
			t.PhotoRef = &s
		default:
			return fmt.Errorf("unknown task field %q", field)
		}
	}
	return nil
}

func applyUserDiff(u *model.User, diff policy.Diff) error {
	for field, value := range diff {
		s, ok := value.(string)
		if !ok {
			return badField(field)
		}
		switch field {
		case policy.FieldName:
			u.Name = s
		case policy.FieldEmail:
			u.Email = s
		case policy.FieldTimezone:
			u.Timezone = s
		default:
			return fmt.Errorf("unknown user field %q", field)
		}
	}
	return nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func badField(field string) error {
	return fmt.Errorf("invalid value for field %q", field)
}
