package model

type SeparationRequest struct {
	// Pointer so that an absent field is distinguishable from an empty string:
	// "" is a valid base64 payload, a missing field is a validation failure.
	AudioFile *string `json:"audio_file" validate:"required"`
}

type SeparationResponse struct {
	VocalsFile        string `json:"vocals_file"`
	AccompanimentFile string `json:"accompaniment_file"`
}

type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type ValidationErrorEnvelope struct {
	Detail []ValidationError `json:"detail"`
}

type FieldSpec struct {
	Type     string `json:"type"`
	Format   string `json:"format,omitempty"`
	Required bool   `json:"required"`
}

type InfoResponse struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Version     string               `json:"version"`
	Engine      string               `json:"engine"`
	Input       map[string]FieldSpec `json:"input"`
	Output      map[string]FieldSpec `json:"output"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}
