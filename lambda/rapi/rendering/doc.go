// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package rendering writes API responses.

Successful responses are tab-indented JSON. Errors render a
model.ErrorResponse with an errorType a client can switch on.
*/
package rendering
