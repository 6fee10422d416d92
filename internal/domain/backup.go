package domain

// BackupInfo describes one backup file parsed from its encoded name.
type BackupInfo struct {
	BackupPath   string `json:"backup_path"`
	BackupName   string `json:"backup_name"`
	OriginalFile string `json:"original_file"`
	OriginalName string `json:"original_name"` // file name with extension, e.g. "test_users.py"
	Timestamp    string `json:"timestamp"`     // encoded YYYYMMDD_HHMMSS
}

// RestoreResult is the outcome of restoring one file from a backup.
type RestoreResult struct {
	Success      bool   `json:"success"`
	RestoredFile string `json:"restored_file,omitempty"`
	BackupPath   string `json:"backup_path,omitempty"`
	Error        string `json:"error,omitempty"`
}
