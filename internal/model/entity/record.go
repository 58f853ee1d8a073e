package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Measurement 测量值子对象（jsonb存储，经gorm json序列化器落盘）
type Measurement struct {
	Value        float64 `json:"value"`
	Unit         string  `json:"unit,omitempty"`
	DeviceSource string  `json:"deviceSource,omitempty"`
}

// StringArray 字符串数组（jsonb存储）
type StringArray []string

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported array column type %T", value)
	}
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(a)
}

// Contains 是否包含指定元素
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}

// Record 工位记录实体：两个工艺工位的测量数据和质检工位的检验结果共用一张表
type Record struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	Category string `json:"category" gorm:"size:32;not null;index"`

	// Silvering 测量字段
	SqueegeeSpeed *Measurement `json:"squeegeeSpeed,omitempty" gorm:"type:jsonb;serializer:json"`
	PrintPressure *Measurement `json:"printPressure,omitempty" gorm:"type:jsonb;serializer:json"`
	InkViscosity  *Measurement `json:"inkViscosity,omitempty" gorm:"type:jsonb;serializer:json"`
	Humidity      *Measurement `json:"humidity,omitempty" gorm:"type:jsonb;serializer:json"`

	// Streeting 测量字段
	Temperature *Measurement `json:"temperature,omitempty" gorm:"type:jsonb;serializer:json"`
	Speed       *Measurement `json:"speed,omitempty" gorm:"type:jsonb;serializer:json"`

	// QualityControl 字段
	Station         string      `json:"station,omitempty" gorm:"size:32"`
	BusinessID      string      `json:"businessId,omitempty" gorm:"size:64;index"`
	Outcome         string      `json:"outcome,omitempty" gorm:"size:16"`
	Reworkable      *bool       `json:"reworkable,omitempty"`
	WasReworked     bool        `json:"wasReworked" gorm:"not null;default:false"`
	FailureCauses   StringArray `json:"failureCauses" gorm:"type:jsonb"`
	AffectedOutputs StringArray `json:"affectedOutputs" gorm:"type:jsonb"`

	// 共用字段
	Priority           string      `json:"priority" gorm:"size:8;not null;default:medium"`
	AffectedMetrics    StringArray `json:"affectedMetrics" gorm:"type:jsonb"`
	Operator           string      `json:"operator" gorm:"size:64;not null;default:Unknown"`
	ClassificationCode string      `json:"classificationCode" gorm:"size:4;not null"`
	Comments           string      `json:"comments,omitempty" gorm:"type:text"`
	RecordedAt         time.Time   `json:"recordedAt" gorm:"not null;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Record) TableName() string {
	return "records"
}

// Measurements 按字段名返回所有已填写的测量值
func (r *Record) Measurements() map[string]*Measurement {
	all := map[string]*Measurement{
		MeasurementSqueegeeSpeed: r.SqueegeeSpeed,
		MeasurementPrintPressure: r.PrintPressure,
		MeasurementInkViscosity:  r.InkViscosity,
		MeasurementHumidity:      r.Humidity,
		MeasurementTemperature:   r.Temperature,
		MeasurementSpeed:         r.Speed,
	}
	out := make(map[string]*Measurement)
	for name, m := range all {
		if m != nil {
			out[name] = m
		}
	}
	return out
}

// MeasurementByName 按字段名取测量值，未填写返回nil
func (r *Record) MeasurementByName(name string) *Measurement {
	switch name {
	case MeasurementSqueegeeSpeed:
		return r.SqueegeeSpeed
	case MeasurementPrintPressure:
		return r.PrintPressure
	case MeasurementInkViscosity:
		return r.InkViscosity
	case MeasurementHumidity:
		return r.Humidity
	case MeasurementTemperature:
		return r.Temperature
	case MeasurementSpeed:
		return r.Speed
	}
	return nil
}

// ApplyMeasurementDefaults 补全测量值缺省的单位和设备来源
func (r *Record) ApplyMeasurementDefaults() {
	for name, m := range r.Measurements() {
		def, ok := measurementDefaults[name]
		if !ok {
			continue
		}
		if m.Unit == "" {
			m.Unit = def.Unit
		}
		if m.DeviceSource == "" {
			m.DeviceSource = def.DeviceSource
		}
	}
}

// 记录类别
const (
	CategorySilvering      = "Silvering"
	CategoryStreeting      = "Streeting"
	CategoryQualityControl = "QualityControl"
)

// 质检结论
const (
	OutcomePass          = "pass"
	OutcomeFail          = "fail"
	OutcomePendingRework = "pending-rework"
)

// 优先级
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// 质检工位
const (
	StationSilvering    = "Silvering"
	StationStreeting    = "Streeting"
	StationFinalProduct = "Final Product check"
)

// 测量字段名
const (
	MeasurementSqueegeeSpeed = "squeegeeSpeed"
	MeasurementPrintPressure = "printPressure"
	MeasurementInkViscosity  = "inkViscosity"
	MeasurementHumidity      = "humidity"
	MeasurementTemperature   = "temperature"
	MeasurementSpeed         = "speed"
)

// 缺省操作员
const OperatorUnknown = "Unknown"

// 各测量字段的缺省单位和设备来源
var measurementDefaults = map[string]Measurement{
	MeasurementSqueegeeSpeed: {Unit: "mm/s", DeviceSource: "clicker"},
	MeasurementPrintPressure: {Unit: "N/m²", DeviceSource: "load_cell"},
	MeasurementInkViscosity:  {Unit: "cP", DeviceSource: "viscometer"},
	MeasurementHumidity:      {Unit: "%RH", DeviceSource: "hygrometer"},
	MeasurementTemperature:   {Unit: "°C", DeviceSource: "thermometer"},
	MeasurementSpeed:         {Unit: "mm/s", DeviceSource: "encoder"},
}

// ValidCategory 类别是否合法
func ValidCategory(category string) bool {
	switch category {
	case CategorySilvering, CategoryStreeting, CategoryQualityControl:
		return true
	}
	return false
}

// ValidOutcome 质检结论是否合法
func ValidOutcome(outcome string) bool {
	switch outcome {
	case OutcomePass, OutcomeFail, OutcomePendingRework:
		return true
	}
	return false
}

// ValidPriority 优先级是否合法
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
