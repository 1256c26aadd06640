// Copyright 2020 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracing contains support code to use opentracing.
package tracing

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"

	"github.com/starmapnet/starmap/pkg/log"
)

// CtxWith creates a new span and attaches it to the context. It also attaches
// a logger with a debug id to the context. If the span is sampled, the debug
// id is derived from the trace id, such that log entries can be matched to
// the trace.
func CtxWith(parentCtx context.Context, operationName string,
	opts ...opentracing.StartSpanOption) (opentracing.Span, context.Context) {

	span, ctx := opentracing.StartSpanFromContext(parentCtx, operationName, opts...)
	if spanCtx, ok := span.Context().(jaeger.SpanContext); ok && spanCtx.IsSampled() {
		id := spanCtx.TraceID()
		logger := log.New("debug_id", fmt.Sprintf("%08x", uint32(id.Low)))
		return span, log.CtxWith(ctx, logger)
	}
	return span, log.CtxWith(ctx, log.New("debug_id", log.NewDebugID()))
}
