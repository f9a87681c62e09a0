package constants

const (
	ROLE_ADMIN = "admin"
	ROLE_USER  = "user"
)

const (
	ERROR_INTERNAL_ERROR       = "Internal server error"
	DATA_INPUT_IS_NOT_NUMBER   = "Id must be a number"
	ERROR_INVALID_LOGIN        = "Email or password is incorrect"
	ERROR_UNAUTHORIZED         = "Please log in"
	ERROR_FORBIDDEN            = "You do not have permission to perform this action"
	ERROR_INVALID_BODY         = "Invalid request body"
	ERROR_SCREENSHOT_REQUIRED  = "Screenshot image is required"
	ERROR_SCREENSHOT_TYPE      = "Screenshot must be a JPEG, PNG or WEBP image"
	ERROR_SCREENSHOT_TOO_LARGE = "Screenshot must be at most 5 MB"
	WARNING_QR_UNAVAILABLE     = "payment screenshot required, QR unavailable"
)

const (
	MAX_SCREENSHOT_BYTES = 5 * 1024 * 1024
	DEFAULT_PAGE_LIMIT   = 20
	MAX_PAGE_LIMIT       = 100
)
