package entity

import (
	"fmt"
	"sync"
	"time"

	"bounty-uploader/ddd/domain/vo"
)

// UploadSession 单次直传事务：Idle → CredentialRequested → Transferring → Confirmed | Failed
type UploadSession struct {
	mu          sync.RWMutex
	blob        *MediaBlob
	submitter   vo.Submitter
	phase       vo.UploadPhase
	failedStep  vo.UploadStep
	credential  *vo.UploadCredential
	result      *vo.UploadResult
	lastErr     error
	createdAt   time.Time
	updatedAt   time.Time
	completedAt *time.Time
}

// NewUploadSession 创建新的直传事务
func NewUploadSession(blob *MediaBlob, submitter vo.Submitter) *UploadSession {
	now := time.Now()
	return &UploadSession{
		blob:      blob,
		submitter: submitter,
		phase:     vo.UploadPhaseIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// Getters
func (s *UploadSession) Blob() *MediaBlob        { return s.blob }
func (s *UploadSession) Submitter() vo.Submitter { return s.submitter }
func (s *UploadSession) CreatedAt() time.Time    { return s.createdAt }

func (s *UploadSession) Phase() vo.UploadPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// FailedStep returns the step that failed, or "" when the session has not failed.
func (s *UploadSession) FailedStep() vo.UploadStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedStep
}

func (s *UploadSession) Credential() *vo.UploadCredential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

func (s *UploadSession) Result() *vo.UploadResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

func (s *UploadSession) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *UploadSession) CompletedAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedAt
}

func (s *UploadSession) transition(target vo.UploadPhase) error {
	if !s.phase.CanTransitionTo(target) {
		return fmt.Errorf("invalid upload phase transition %s -> %s", s.phase, target)
	}
	s.phase = target
	s.updatedAt = time.Now()
	if target.IsFinal() {
		t := s.updatedAt
		s.completedAt = &t
	}
	return nil
}

// MarkCredentialRequested 标记已发起凭证申请
func (s *UploadSession) MarkCredentialRequested() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(vo.UploadPhaseCredentialRequested)
}

// MarkTransferring 记录凭证并进入传输阶段
func (s *UploadSession) MarkTransferring(cred *vo.UploadCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(vo.UploadPhaseTransferring); err != nil {
		return err
	}
	s.credential = cred
	return nil
}

// MarkConfirmed 记录最终结果
func (s *UploadSession) MarkConfirmed(result *vo.UploadResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(vo.UploadPhaseConfirmed); err != nil {
		return err
	}
	s.result = result
	return nil
}

// MarkFailed 记录失败步骤与错误；重复调用只保留第一次失败。
func (s *UploadSession) MarkFailed(step vo.UploadStep, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transition(vo.UploadPhaseFailed) != nil {
		return
	}
	s.failedStep = step
	s.lastErr = err
}
