// Package httpapi is the HTTP front door: it accepts image uploads and mints
// them as NFTs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"nft-go/internal/fs"
	"nft-go/internal/nft"
)

const (
	WelcomeMessage = "Welcome to the NFT Minting API!"
	HealthMessage  = "Server is healthy!"

	uploadField    = "image"
	maxUploadBytes = 32 << 20
)

// Minter mints an image stored on local disk.
type Minter interface {
	MintUpload(ctx context.Context, imagePath string) (*nft.UploadResult, error)
}

// MintResponse is the success body of POST /mint-nft.
type MintResponse struct {
	IPFSHash        string `json:"ipfsHash"`
	IPFSURL         string `json:"ipfsUrl"`
	TxHash          string `json:"txHash"`
	TokenID         string `json:"tokenId"`
	ContractAddress string `json:"contractAddress"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options configures a Server.
type Options struct {
	// UploadDir holds uploads while they are minted.
	UploadDir string
	Logger    nft.Logger
	IDGen     nft.IDGenerator
	Metrics   *Metrics
}

// Server routes front door requests.
type Server struct {
	minter    Minter
	uploadDir string
	logger    nft.Logger
	idgen     nft.IDGenerator
	metrics   *Metrics
	router    *mux.Router
}

// NewServer creates a Server that mints uploads through minter.
func NewServer(minter Minter, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = nft.NewNopLogger()
	}
	if opts.IDGen == nil {
		opts.IDGen = nft.UUIDGenerator{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	s := &Server{
		minter:    minter,
		uploadDir: opts.UploadDir,
		logger:    opts.Logger,
		idgen:     opts.IDGen,
		metrics:   opts.Metrics,
	}

	r := mux.NewRouter()
	r.Use(s.requestLoggerMiddleware)
	r.HandleFunc("/", s.welcomeHandler).Methods("GET")
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/mint-nft", s.mintHandler).Methods("POST")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("front door listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down front door")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) welcomeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, WelcomeMessage)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, HealthMessage)
}

func (s *Server) mintHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.metrics.mintResult("rejected")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.metrics.mintResult("rejected")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("missing %q file field", uploadField))
		return
	}
	defer file.Close()

	scope, err := fs.NewScope(s.uploadDir, s.idgen.New())
	if err != nil {
		s.fail(w, err)
		return
	}
	defer func() {
		if err := scope.Cleanup(); err != nil {
			s.logger.Warn("failed to remove upload", "error", err)
		}
	}()

	path, err := storeUpload(scope, header.Filename, file)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("upload received", "file", header.Filename, "size", header.Size)

	result, err := s.minter.MintUpload(r.Context(), path)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.metrics.mintResult("success")
	writeJSON(w, http.StatusOK, MintResponse{
		IPFSHash:        result.ImageCID,
		IPFSURL:         result.ImageURL,
		TxHash:          result.TxHash,
		TokenID:         strconv.FormatUint(result.TokenID, 10),
		ContractAddress: result.ContractAddress,
	})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.metrics.mintResult("error")
	s.logger.Error("mint request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// storeUpload copies the upload into scope, keeping only the extension of
// the client-supplied name.
func storeUpload(scope *fs.Scope, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	f, err := scope.Create("upload" + ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("storing upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storing upload: %w", err)
	}
	return f.Name(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
