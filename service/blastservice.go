package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/qgg21ypuLukeS/NucloFlo/model"
)

// RemoteSearcher submits a sequence to the remote alignment search service
// and blocks until the raw result document is available.
type RemoteSearcher interface {
	Search(ctx context.Context, program, database, query string) ([]byte, error)
}

// Service defines the interface for BLAST bridge operations.
type Service interface {
	RunBlast(ctx context.Context, req model.RunBlastRequest) (model.RunBlastResponse, error)
	Health(ctx context.Context) (model.HealthResponse, error)
}

// NewBlastService creates a new instance of Service. database selects the
// reference database on the remote side ("nt" for nucleotides).
func NewBlastService(logger log.Logger, searcher RemoteSearcher, database string) Service {
	return &blastService{
		logger:   logger,
		searcher: searcher,
		database: database,
		validate: validator.New(),
	}
}

type blastService struct {
	logger   log.Logger
	searcher RemoteSearcher
	database string
	validate *validator.Validate
}

// RunBlast validates the request, decodes the upload as text and forwards it
// to the remote search service. The call blocks for the full duration of the
// remote search; cancellation comes from ctx only.
func (s *blastService) RunBlast(ctx context.Context, req model.RunBlastRequest) (model.RunBlastResponse, error) {
	s.logger.Log("method", "RunBlast", "blastType", req.BlastType, "filename", req.FileName, "size", len(req.Content))

	if err := s.validate.Struct(req); err != nil {
		level.Error(s.logger).Log("method", "RunBlast", "err", "unsupported blastType", "blastType", req.BlastType)
		return model.RunBlastResponse{}, NewAppError(err, 400, fmt.Sprintf("Unsupported blastType '%s'", req.BlastType))
	}

	if !utf8.Valid(req.Content) {
		level.Error(s.logger).Log("method", "RunBlast", "err", ErrNotUTF8)
		return model.RunBlastResponse{}, NewInputError(ErrNotUTF8)
	}
	query := string(req.Content)

	submissionID := uuid.New().String()
	logger := log.With(s.logger, "submission_id", submissionID)

	result, err := s.searcher.Search(ctx, req.BlastType, s.database, query)
	if err != nil {
		level.Error(logger).Log("method", "RunBlast", "err", err)
		return model.RunBlastResponse{}, NewUpstreamError(err)
	}

	level.Info(logger).Log("method", "RunBlast", "status", "search completed", "result_bytes", len(result))

	return model.RunBlastResponse{
		SubmissionID: submissionID,
		FileName:     "blast_result.xml",
		ContentType:  "application/xml",
		Result:       result,
	}, nil
}

func (s *blastService) Health(ctx context.Context) (model.HealthResponse, error) {
	return model.HealthResponse{Status: "ok", Service: "blast-bridge"}, nil
}
