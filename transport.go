package base

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	httptransport "github.com/go-kit/kit/transport/http"

	"github.com/qgg21ypuLukeS/NucloFlo/config"
	"github.com/qgg21ypuLukeS/NucloFlo/model"
	"github.com/qgg21ypuLukeS/NucloFlo/service"
)

const (
	fileFormField      = "file"
	blastTypeFormField = "blastType"
)

// MakeHttpHandler wires the gin router: the /try upload page, the blast
// submission endpoint and a liveness probe for the reverse proxy.
func MakeHttpHandler(s service.Service, cfg *config.Config) http.Handler {
	options := []httptransport.ServerOption{httptransport.ServerErrorEncoder(service.EncodeError)}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	r.LoadHTMLGlob(cfg.TemplatesGlob)

	endpoints := NewEndpoint(s, cfg.RequestDeadline)

	r.GET("/try", func(c *gin.Context) {
		c.HTML(http.StatusOK, "try.html", nil)
	})

	r.POST("/run_blast", gin.WrapF(httptransport.NewServer(
		endpoints.RunBlast,
		makeDecodeRunBlastRequest(cfg.MaxUploadBytes),
		encodeBlastResultResponse,
		options...,
	).ServeHTTP))

	r.GET("/healthz", gin.WrapF(httptransport.NewServer(
		endpoints.Health,
		decodeHealthRequest,
		encodeResponse,
		options...,
	).ServeHTTP))

	return r
}

// makeDecodeRunBlastRequest builds the multipart decoder. Validation order
// matters for the error contract: file presence first, then the blastType
// field; whitelist membership is checked by the service.
func makeDecodeRunBlastRequest(maxUploadBytes int64) httptransport.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		file, header, err := r.FormFile(fileFormField)
		if err != nil {
			if err == http.ErrMissingFile {
				return nil, service.NewInputError(service.ErrNoFile)
			}
			return nil, service.NewAppError(err, http.StatusBadRequest,
				"Failed to get file from form: "+err.Error())
		}
		defer file.Close()

		if header.Size > maxUploadBytes {
			return nil, service.NewInputError(service.ErrFileTooLarge)
		}

		content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			return nil, service.NewAppError(err, http.StatusBadRequest,
				"Failed to read uploaded file: "+err.Error())
		}
		if int64(len(content)) > maxUploadBytes {
			return nil, service.NewInputError(service.ErrFileTooLarge)
		}

		blastType := strings.TrimSpace(r.FormValue(blastTypeFormField))
		if blastType == "" {
			return nil, service.NewInputError(service.ErrNoBlastType)
		}

		return model.RunBlastRequest{
			BlastType: blastType,
			FileName:  header.Filename,
			Content:   content,
		}, nil
	}
}

func decodeHealthRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	return nil, nil
}

// encodeBlastResultResponse streams the result document back as a file
// attachment rather than a JSON body.
func encodeBlastResultResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	resp, ok := response.(model.RunBlastResponse)
	if !ok {
		return fmt.Errorf("invalid response type: expected model.RunBlastResponse")
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", resp.FileName))
	_, err := w.Write(resp.Result)
	return err
}

func encodeResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}
