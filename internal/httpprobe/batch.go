package httpprobe

const minBatchSize = 10

// BatchSize returns max(10, total/10).
func BatchSize(total int) int {
	if size := total / 10; size > minBatchSize {
		return size
	}
	return minBatchSize
}

// SplitBatches partitions hosts into BatchSize(len(hosts)) chunks. Every
// batch is non-empty and concatenating them yields hosts.
func SplitBatches(hosts []string) [][]string {
	if len(hosts) == 0 {
		return nil
	}

	size := BatchSize(len(hosts))
	batches := make([][]string, 0, (len(hosts)+size-1)/size)
	for start := 0; start < len(hosts); start += size {
		end := min(start+size, len(hosts))
		batches = append(batches, hosts[start:end])
	}
	return batches
}
