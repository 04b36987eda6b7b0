package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Engine-specific ───────────────────────────────────────────────
	ErrNoGradeData        ErrCode = "NO_GRADE_DATA"
	ErrInvalidTransition  ErrCode = "INVALID_TRANSITION"
	ErrGradeMissing       ErrCode = "GRADE_MISSING"
	ErrQuotaNotConfigured ErrCode = "QUOTA_NOT_CONFIGURED"
	ErrRecalcInProgress   ErrCode = "RECALC_IN_PROGRESS"
	ErrRecalcSuperseded   ErrCode = "RECALC_SUPERSEDED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Engine-specific ───────────────────────────────────────────────
	case ErrNoGradeData:
		return "Siswa belum memiliki data nilai."
	case ErrInvalidTransition:
		return "Sanggahan sudah diproses dan tidak dapat diubah."
	case ErrGradeMissing:
		return "Nilai yang disanggah tidak ditemukan."
	case ErrQuotaNotConfigured:
		return "Kuota jurusan belum dikonfigurasi."
	case ErrRecalcInProgress:
		return "Perhitungan ulang untuk jurusan ini sedang berjalan."
	case ErrRecalcSuperseded:
		return "Perhitungan ulang dibatalkan karena ada perubahan data yang lebih baru."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
