package entity

import "fmt"

// ValidationError 校验错误：字段缺失或取值非法
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func missingField(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// requiredMeasurements 各类别创建时必填的测量字段
var requiredMeasurements = map[string][]string{
	CategorySilvering: {
		MeasurementSqueegeeSpeed,
		MeasurementPrintPressure,
		MeasurementInkViscosity,
	},
	CategoryStreeting: {
		MeasurementTemperature,
		MeasurementSpeed,
	},
	CategoryQualityControl: {},
}

// Validate 按类别校验记录的条件必填规则。
// create=true时同时校验类别必填的测量字段（更新场景允许只提交变化的字段）。
func (r *Record) Validate(create bool) error {
	if !ValidCategory(r.Category) {
		return missingField("category", fmt.Sprintf("unknown category %q", r.Category))
	}
	if r.Priority != "" && !ValidPriority(r.Priority) {
		return missingField("priority", fmt.Sprintf("unknown priority %q", r.Priority))
	}

	if create {
		for _, name := range requiredMeasurements[r.Category] {
			if r.MeasurementByName(name) == nil {
				return missingField(name, fmt.Sprintf("measurement %s is required for %s records", name, r.Category))
			}
		}
	}

	if r.Category != CategoryQualityControl {
		return nil
	}

	// 质检记录规则
	if create && r.BusinessID == "" {
		return missingField("businessId", "business ID is required for quality control records")
	}
	if r.Outcome == "" {
		if create {
			return missingField("outcome", "outcome is required for quality control records")
		}
		return nil
	}
	if !ValidOutcome(r.Outcome) {
		return missingField("outcome", fmt.Sprintf("unknown outcome %q", r.Outcome))
	}

	switch r.Outcome {
	case OutcomeFail:
		if len(r.FailureCauses) == 0 {
			return missingField("failureCauses", "at least one failure cause is required when outcome is fail")
		}
		if len(r.AffectedOutputs) == 0 {
			return missingField("affectedOutputs", "at least one affected output is required when outcome is fail")
		}
	case OutcomePendingRework:
		if len(r.FailureCauses) == 0 {
			return missingField("failureCauses", "at least one failure cause is required when outcome is pending-rework")
		}
	}

	return nil
}
