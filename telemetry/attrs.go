package telemetry

import "go.opentelemetry.io/otel/attribute"

func chunkIDAttr(id int64) attribute.KeyValue  { return attribute.Int64("carver.chunk_id", id) }
func chunkSizeAttr(n int64) attribute.KeyValue { return attribute.Int64("carver.chunk_size", n) }
func fileTypeAttr(t string) attribute.KeyValue { return attribute.String("carver.file_type", t) }
func offsetAttr(off int64) attribute.KeyValue  { return attribute.Int64("carver.offset", off) }
