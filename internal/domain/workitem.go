package domain

// WorkItem is one unit of work: a single invoice to fetch from a provider
// portal. Items are created once by the source reader and never mutated.
// Duplicate identifiers are kept as-is.
type WorkItem struct {
	Provider     string `json:"provider"`
	Identifier   string `json:"identifier"`
	FullDocument string `json:"full_document,omitempty"`
	RowIndex     int    `json:"row_index"`
}

// Batch is a fixed-size ordered group of work items for one provider,
// consumed by exactly one runner invocation. Delivery through the queue is
// at-least-once, so consumers must treat reprocessing as possible.
type Batch struct {
	Provider     string     `json:"provider"`
	Items        []WorkItem `json:"items"`
	BatchIndex   int        `json:"batch_index"`
	TotalBatches int        `json:"total_batches"`
	ExecutionID  string     `json:"execution_id"`
}

// Identifiers returns the invoice identifiers of the batch in input order.
func (b *Batch) Identifiers() []string {
	ids := make([]string, len(b.Items))
	for i, item := range b.Items {
		ids[i] = item.Identifier
	}
	return ids
}

// Payload converts the batch to its queue wire format.
func (b *Batch) Payload() BatchPayload {
	return BatchPayload{
		Identifiers:  b.Identifiers(),
		BatchIndex:   b.BatchIndex,
		TotalBatches: b.TotalBatches,
		Provider:     b.Provider,
		ExecutionID:  b.ExecutionID,
	}
}

// BatchPayload is the wire format posted to the worker endpoint for one
// queued batch.
type BatchPayload struct {
	Identifiers  []string `json:"identifiers"`
	BatchIndex   int      `json:"batch_index"`
	TotalBatches int      `json:"total_batches"`
	Provider     string   `json:"provider"`
	ExecutionID  string   `json:"execution_id"`
}

// ToBatch reconstructs a Batch from a queue payload. Workers only receive
// identifiers, so row indexes are unknown on this side.
func (p *BatchPayload) ToBatch() *Batch {
	items := make([]WorkItem, len(p.Identifiers))
	for i, id := range p.Identifiers {
		items[i] = WorkItem{Provider: p.Provider, Identifier: id}
	}
	return &Batch{
		Provider:     p.Provider,
		Items:        items,
		BatchIndex:   p.BatchIndex,
		TotalBatches: p.TotalBatches,
		ExecutionID:  p.ExecutionID,
	}
}
