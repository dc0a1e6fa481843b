package errno

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrServerBusy     = &Errno{Code: 503, Message: "Too many submissions in progress"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 业务错误码
	ErrMissingParam       = &Errno{Code: 20001, Message: "Missing required parameter"}
	ErrFileSizeIllegal    = &Errno{Code: 20003, Message: "File size is illegal"}
	ErrSubmissionNotFound = &Errno{Code: 20004, Message: "Submission not found"}

	// 压缩相关错误码
	ErrEngineLoad  = &Errno{Code: 20010, Message: "Failed to load video compression library"}
	ErrCompression = &Errno{Code: 20011, Message: "Failed to compress video"}

	// 直传相关错误码
	ErrCredentialRequest = &Errno{Code: 20020, Message: "Failed to generate upload URL"}
	ErrTransfer          = &Errno{Code: 20021, Message: "Storage upload failed"}
	ErrConfirmation      = &Errno{Code: 20022, Message: "Failed to confirm upload"}
)
