package metrics

import "sort"

// TypeBucket is the aggregated count of responses sharing a message type.
type TypeBucket struct {
	MsgType string
	Count   int
}

// FlattenTypeBuckets converts a msgtype->count map into sorted rows:
// descending count, then message type for stability.
func FlattenTypeBuckets(buckets map[string]int) []TypeBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]TypeBucket, 0, len(buckets))
	for msgType, count := range buckets {
		rows = append(rows, TypeBucket{MsgType: msgType, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].MsgType < rows[j].MsgType
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
