package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/profitbank/internal/banking"
	"github.com/life2you_mini/profitbank/internal/storage"
)

// Server 利润划转服务的HTTP接口
type Server struct {
	addr        string
	controller  *banking.Controller
	redisClient *storage.RedisClient
	logger      *zap.Logger
	httpServer  *http.Server
}

// NewServer 创建HTTP接口服务
func NewServer(addr string, controller *banking.Controller, redisClient *storage.RedisClient, logger *zap.Logger) *Server {
	return &Server{
		addr:        addr,
		controller:  controller,
		redisClient: redisClient,
		logger:      logger.With(zap.String("component", "api_server")),
	}
}

// Start 启动HTTP服务，阻塞直到服务关闭
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/banking/stats", s.handleStats)
	mux.HandleFunc("/api/banking/history", s.handleHistory)
	mux.HandleFunc("/api/banking/manual", s.handleManualBanking)
	mux.HandleFunc("/api/banking/config", s.handleUpdateConfig)
	mux.HandleFunc("/api/banking/enabled", s.handleSetEnabled)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("启动HTTP接口", zap.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 优雅关闭HTTP服务
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth 健康检查，带Redis连接与降级状态
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.controller.GetStats()

	redisStatus := "ok"
	if err := s.redisClient.Health(r.Context()); err != nil {
		redisStatus = err.Error()
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"redis":     redisStatus,
		"degraded":  snapshot.Degraded,
		"timestamp": time.Now().UTC(),
	})
}

// handleStats 返回状态快照
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.controller.GetStats())
}

// handleHistory 返回划转历史，limit参数可选，默认50
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit参数非法")
			return
		}
		limit = parsed
	}

	s.writeJSON(w, http.StatusOK, s.controller.GetBankingHistory(limit))
}

// manualBankingRequest 手动划转请求体
type manualBankingRequest struct {
	Amount float64 `json:"amount"`
}

// handleManualBanking 执行手动划转
func (s *Server) handleManualBanking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req manualBankingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	if err := s.controller.ManualBanking(r.Context(), req.Amount); err != nil {
		s.logger.Warn("手动划转失败",
			zap.Float64("amount", req.Amount),
			zap.Error(err))
		s.writeError(w, statusForBankingError(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"amount":  req.Amount,
	})
}

// handleUpdateConfig 部分更新划转配置
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.controller.GetStats().Config)
	case http.MethodPut:
		var update banking.ConfigUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			s.writeError(w, http.StatusBadRequest, "请求体解析失败")
			return
		}

		if err := s.controller.UpdateConfig(&update); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		s.writeJSON(w, http.StatusOK, s.controller.GetStats().Config)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// setEnabledRequest 开关请求体
type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// handleSetEnabled 开关自动划转
func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	s.controller.SetBankingEnabled(req.Enabled)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": req.Enabled,
	})
}

// statusForBankingError 将校验错误映射为HTTP状态码
func statusForBankingError(err error) int {
	switch {
	case errors.Is(err, banking.ErrInvalidAmount),
		errors.Is(err, banking.ErrExceedsSingleTransferLimit),
		errors.Is(err, banking.ErrExceedsDailyLimit),
		errors.Is(err, banking.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("写入响应失败", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
