package infer

// Stats 引擎运行统计快照。
type Stats struct {
	Submitted     int64 `json:"submitted"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
	Cancelled     int64 `json:"cancelled"`
	TimedOut      int64 `json:"timed_out"`
	Batches       int64 `json:"batches"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	QueueDepth    int   `json:"queue_depth"`
	CurrentTarget int   `json:"current_target"`
}

// Stats 返回当前统计快照。
func (e *Engine) Stats() Stats {
	return Stats{
		Submitted:     e.submitted.Load(),
		Completed:     e.completed.Load(),
		Failed:        e.failed.Load(),
		Cancelled:     e.cancelled.Load(),
		TimedOut:      e.timedOut.Load(),
		Batches:       e.batches.Load(),
		CacheHits:     e.hits.Load(),
		CacheMisses:   e.misses.Load(),
		QueueDepth:    e.acc.Len(),
		CurrentTarget: e.ctrl.CurrentTarget(),
	}
}

// BatchEfficiency 返回平均批大小（完成+失败 / 批次数），无批次时为 0。
func (s Stats) BatchEfficiency() float64 {
	if s.Batches == 0 {
		return 0
	}
	return float64(s.Completed+s.Failed) / float64(s.Batches)
}

// CacheHitRate 返回缓存命中率，无访问时为 0。
func (s Stats) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}
