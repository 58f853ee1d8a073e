package entity

// 失败原因选项
var FailureCauseOptions = []string{
	"Voids",
	"Insufficient Filling",
	"Contamination",
	"Cracks or Scratches",
	"Operator Error",
	"Flexible Substrate defect",
	"Other",
}

// 受影响输出选项
var AffectedOutputOptions = []string{
	"No Conductivity and circuitry",
	"Reliability",
	"Out of specs",
	"Other",
}

// causeImpacts 失败原因到缺省受影响输出的固定映射
var causeImpacts = map[string][]string{
	"Voids": {"No Conductivity and circuitry", "Reliability"},
}

// DeriveAffectedOutputs 按失败原因推导缺省受影响输出（去重，保持映射顺序）
func DeriveAffectedOutputs(causes StringArray) StringArray {
	var out StringArray
	seen := make(map[string]bool)
	for _, cause := range causes {
		for _, impact := range causeImpacts[cause] {
			if !seen[impact] {
				seen[impact] = true
				out = append(out, impact)
			}
		}
	}
	return out
}
