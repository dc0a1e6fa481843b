package port

// Stage names a step of a submission for progress listeners.
type Stage string

const (
	StageCompressing Stage = "compressing"
	StageUploading   Stage = "uploading"
)

// ProgressListener receives per-stage percentages (0-100) while a submission runs.
type ProgressListener func(stage Stage, progress int)
