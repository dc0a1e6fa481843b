package vo

// UploadPhase 直传流程阶段
type UploadPhase string

const (
	// UploadPhaseIdle 未开始
	UploadPhaseIdle UploadPhase = "idle"
	// UploadPhaseCredentialRequested 已申请上传凭证
	UploadPhaseCredentialRequested UploadPhase = "credential_requested"
	// UploadPhaseTransferring 正在传输字节
	UploadPhaseTransferring UploadPhase = "transferring"
	// UploadPhaseConfirmed 已确认
	UploadPhaseConfirmed UploadPhase = "confirmed"
	// UploadPhaseFailed 失败
	UploadPhaseFailed UploadPhase = "failed"
)

// IsValid 检查阶段是否有效
func (p UploadPhase) IsValid() bool {
	switch p {
	case UploadPhaseIdle, UploadPhaseCredentialRequested, UploadPhaseTransferring,
		UploadPhaseConfirmed, UploadPhaseFailed:
		return true
	default:
		return false
	}
}

// String 返回阶段字符串
func (p UploadPhase) String() string {
	return string(p)
}

// IsFinal 检查是否为最终阶段
func (p UploadPhase) IsFinal() bool {
	return p == UploadPhaseConfirmed || p == UploadPhaseFailed
}

// CanTransitionTo 检查是否可以转换到目标阶段
func (p UploadPhase) CanTransitionTo(target UploadPhase) bool {
	switch p {
	case UploadPhaseIdle:
		return target == UploadPhaseCredentialRequested || target == UploadPhaseFailed
	case UploadPhaseCredentialRequested:
		return target == UploadPhaseTransferring || target == UploadPhaseFailed
	case UploadPhaseTransferring:
		return target == UploadPhaseConfirmed || target == UploadPhaseFailed
	case UploadPhaseConfirmed, UploadPhaseFailed:
		return false // 最终阶段不能转换
	default:
		return false
	}
}

// UploadStep names the protocol step that failed.
type UploadStep string

const (
	UploadStepCredential UploadStep = "credential"
	UploadStepTransfer   UploadStep = "transfer"
	UploadStepConfirm    UploadStep = "confirm"
)
