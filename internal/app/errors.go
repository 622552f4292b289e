package app

import "errors"

// Sentinel kinds for run errors.
var (
	ErrMissingCSV = errors.New("missing csv_file upload")
	ErrWorkspace  = errors.New("prepare run workspace")
	ErrSaveUpload = errors.New("save upload")
	ErrWriteFile  = errors.New("write run output")
)
