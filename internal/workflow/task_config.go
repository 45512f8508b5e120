package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskConfig 按动作类型区分的任务配置
type TaskConfig interface {
	ActionType() ActionType
}

// UploadConfig 上传类任务配置,DocTypeID 为需要的文档类型
type UploadConfig struct {
	DocTypeID string `json:"doc_type_id,omitempty"`
}

func (UploadConfig) ActionType() ActionType { return ActionUpload }

// EmailConfig 邮件类任务配置
type EmailConfig struct {
	EmailTemplateID string `json:"email_template_id,omitempty"`
}

func (EmailConfig) ActionType() ActionType { return ActionEmail }

// GenerateDocConfig 生成文档类任务配置
type GenerateDocConfig struct {
	DocTemplateID string `json:"doc_template_id,omitempty"`
}

func (GenerateDocConfig) ActionType() ActionType { return ActionGenerateDoc }

// ManualConfig 手工任务,无配置
type ManualConfig struct{}

func (ManualConfig) ActionType() ActionType { return ActionManual }

// ParseTaskConfig 根据动作类型解析配置,未知类型或格式错误返回 ValidationError
func ParseTaskConfig(actionType string, raw string) (TaskConfig, error) {
	var cfg TaskConfig
	switch ActionType(actionType) {
	case ActionUpload:
		c := UploadConfig{}
		if err := decodeConfig(raw, &c); err != nil {
			return nil, err
		}
		c.DocTypeID = strings.TrimSpace(c.DocTypeID)
		cfg = c
	case ActionEmail:
		c := EmailConfig{}
		if err := decodeConfig(raw, &c); err != nil {
			return nil, err
		}
		cfg = c
	case ActionGenerateDoc:
		c := GenerateDocConfig{}
		if err := decodeConfig(raw, &c); err != nil {
			return nil, err
		}
		cfg = c
	case ActionManual:
		cfg = ManualConfig{}
	default:
		return nil, validation("unknown action type %q", actionType)
	}
	return cfg, nil
}

// EncodeTaskConfig 序列化配置
func EncodeTaskConfig(cfg TaskConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}
	if _, ok := cfg.(ManualConfig); ok {
		return "", nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task config: %w", err)
	}
	return string(data), nil
}

// RequiredDocType 返回上传任务需要的文档类型
func RequiredDocType(cfg TaskConfig) (string, bool) {
	upload, ok := cfg.(UploadConfig)
	if !ok || upload.DocTypeID == "" {
		return "", false
	}
	return upload.DocTypeID, true
}

func decodeConfig(raw string, v interface{}) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &Error{Code: CodeValidation, Message: "malformed task config", Err: err}
	}
	return nil
}
