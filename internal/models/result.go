package models

import "alfredoptarigan/interview-panel/internal/interview"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
}

type StartSessionRequest struct {
	Resume         string `json:"resume" validate:"required,min=20"`
	JobDescription string `json:"job_description" validate:"required,min=20"`
	Rotation       string `json:"rotation" validate:"omitempty,oneof=fixed_order phase_based random"`
}

type StartSessionResponse struct {
	SessionID string             `json:"session_id"`
	Rotation  string             `json:"rotation"`
	Progress  interview.Progress `json:"progress"`
}

type QuestionResponse struct {
	Role         interview.Role  `json:"role"`
	DisplayName  string          `json:"display_name"`
	QuestionText string          `json:"question_text"`
	Phase        interview.Phase `json:"phase"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

type AnswerResponse struct {
	Analysis            *interview.AnalysisResult `json:"analysis"`
	PhaseTransition     *interview.Phase          `json:"phase_transition,omitempty"`
	FollowUpRecommended bool                      `json:"follow_up_recommended"`
	Progress            interview.Progress        `json:"progress"`
}

type CompareRequest struct {
	Question   string `json:"question" validate:"required"`
	UserAnswer string `json:"user_answer" validate:"required"`
	BestAnswer string `json:"best_answer" validate:"required"`
}

type RebuildResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
