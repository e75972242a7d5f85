package model

// RunBlastRequest is what the transport layer hands to the service after a
// successful multipart decode: the uploaded file content plus the selected
// BLAST program.
type RunBlastRequest struct {
	BlastType string `validate:"required,oneof=blastn blastp blastx tblastn tblastx"`
	FileName  string
	Content   []byte
}

// RunBlastResponse carries the raw result document back to the transport
// layer, which streams it out as a file attachment.
type RunBlastResponse struct {
	SubmissionID string
	FileName     string
	ContentType  string
	Result       []byte
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
