package domain

// UsageStats - сводка по хранилищу пользователя
type UsageStats struct {
	TotalFiles   int64 `json:"totalFiles" db:"total_files"`
	TotalFolders int64 `json:"totalFolders" db:"total_folders"`
	TotalSize    int64 `json:"totalSize" db:"total_size"`
}
