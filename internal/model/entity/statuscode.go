package entity

import (
	"errors"
	"fmt"
)

// 分类码：4位数字串 XYZW
//
// X 部门:   1=Silvering 2=Streeting 3=QualityControl
// Y 来源:   1=表单手工录入 2=传感器数据（预留）
// Z 传感器: 0=通用/手工 1=clicker 2=load_cell 3=viscometer 4=thermometer 5=encoder 6=hygrometer
// W 参数序号: 0=单参数/通用 1-9=第N个参数

// 数据来源
const (
	SourceManual = "manual"
	SourceSensor = "sensor"
)

// 传感器类型
const (
	SensorGeneral    = "general"
	SensorClicker    = "clicker"
	SensorLoadCell   = "load_cell"
	SensorViscometer = "viscometer"
	SensorThermo     = "thermometer"
	SensorEncoder    = "encoder"
	SensorHygrometer = "hygrometer"
)

var categoryDigits = map[string]byte{
	CategorySilvering:      '1',
	CategoryStreeting:      '2',
	CategoryQualityControl: '3',
}

var sourceDigits = map[string]byte{
	SourceManual: '1',
	SourceSensor: '2',
}

var sensorDigits = map[string]byte{
	SensorGeneral:    '0',
	SensorClicker:    '1',
	SensorLoadCell:   '2',
	SensorViscometer: '3',
	SensorThermo:     '4',
	SensorEncoder:    '5',
	SensorHygrometer: '6',
}

var sensorNames = map[byte]string{
	'0': "General",
	'1': "Clicker (Squeegee Speed)",
	'2': "Load Cell (Print Pressure)",
	'3': "Viscometer (Ink Viscosity)",
	'4': "Thermometer (Temperature)",
	'5': "Encoder (Speed)",
	'6': "Hygrometer (Humidity)",
}

var ErrInvalidClassificationCode = errors.New("invalid classification code")

// GenerateClassificationCode 按(类别,来源,传感器,参数序号)生成分类码
func GenerateClassificationCode(category, source, sensorType string, paramIndex int) string {
	dept, ok := categoryDigits[category]
	if !ok {
		dept = categoryDigits[CategorySilvering]
	}
	src, ok := sourceDigits[source]
	if !ok {
		src = sourceDigits[SourceManual]
	}
	sensor, ok := sensorDigits[sensorType]
	if !ok {
		sensor = sensorDigits[SensorGeneral]
	}
	if paramIndex < 0 {
		paramIndex = 0
	}
	if paramIndex > 9 {
		paramIndex = 9
	}
	return string([]byte{dept, src, sensor, byte('0' + paramIndex)})
}

// DefaultClassificationCode 手工录入的缺省分类码：类别位 + "1" + "00"
func DefaultClassificationCode(category string) string {
	return GenerateClassificationCode(category, SourceManual, SensorGeneral, 0)
}

// ClassificationInfo 分类码解码结果
type ClassificationInfo struct {
	Category   string `json:"category"`
	Source     string `json:"source"`
	SensorType string `json:"sensorType"`
	ParamIndex int    `json:"paramIndex"`
	Code       string `json:"code"`
}

// DecodeClassificationCode 解码分类码
func DecodeClassificationCode(code string) (*ClassificationInfo, error) {
	if !ValidClassificationCode(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClassificationCode, code)
	}

	info := &ClassificationInfo{Code: code}
	for category, digit := range categoryDigits {
		if digit == code[0] {
			info.Category = category
		}
	}
	if code[1] == '2' {
		info.Source = SourceSensor
	} else {
		info.Source = SourceManual
	}
	info.SensorType = sensorNames[code[2]]
	info.ParamIndex = int(code[3] - '0')
	return info, nil
}

// ValidClassificationCode 分类码格式是否合法
func ValidClassificationCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	if code[0] < '1' || code[0] > '3' {
		return false
	}
	if code[1] != '1' && code[1] != '2' {
		return false
	}
	if code[2] < '0' || code[2] > '6' {
		return false
	}
	return code[3] >= '0' && code[3] <= '9'
}
