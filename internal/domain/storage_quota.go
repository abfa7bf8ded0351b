package domain

type QuotaInfo struct {
	TotalSpace     int64   `json:"total_space"`
	UsedSpace      int64   `json:"used_space"`
	AvailableSpace int64   `json:"available_space"`
	UsagePercent   float64 `json:"usage_percent"`
}

// NewQuotaInfo собирает сводку по квоте аккаунта
func NewQuotaInfo(a *Account) *QuotaInfo {
	info := &QuotaInfo{
		TotalSpace:     a.StorageLimit,
		UsedSpace:      a.StorageUsed,
		AvailableSpace: a.Available(),
	}
	if a.StorageLimit > 0 {
		info.UsagePercent = float64(a.StorageUsed) / float64(a.StorageLimit) * 100
	}
	return info
}
