// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreUnavailable        Code = "store.connection.unavailable"
	CodeStoreHandleClosed       Code = "store.handle.closed"
	CodeStoreWriteFailure       Code = "store.write.failure"
	CodeStoreVectorInvalid      Code = "store.vector.invalid"
	CodeStoreEmbeddingCorrupt   Code = "store.embedding.corrupt"
	CodeStoreDocumentInvalid    Code = "store.document.invalid_input"
	CodeStoreDocumentNotFound   Code = "store.document.not_found"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeRetrieverNoQueryVector Code = "retriever.query.no_vector"
	CodeRetrieverInvalidInput  Code = "retriever.query.invalid_input"

	CodeEmbeddingConfigInvalid   Code = "embedding.config.invalid"
	CodeEmbeddingInputInvalid    Code = "embedding.input.invalid"
	CodeEmbeddingUpstreamFailure Code = "embedding.upstream.failure"
	CodeEmbeddingResponseInvalid Code = "embedding.response.invalid"
	CodeEmbeddingUnsupported     Code = "embedding.modality.unsupported"

	CodePipelineInputInvalid Code = "pipeline.input.invalid"
	CodePipelineCanceled     Code = "pipeline.batch.canceled"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretInputInvalid   Code = "secret.input.invalid"
	CodeSecretNotFound       Code = "secret.entry.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeCLISetupFailure  Code = "cli.setup.failure"
	CodeCLIInputInvalid  Code = "cli.input.invalid"
	CodeCLIOutputFailure Code = "cli.output.failure"
	CodeInternalFailure  Code = "internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldDocumentID(value string) Attr {
	return Field("document_id", value)
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldModality(value string) Attr {
	return Field("modality", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
