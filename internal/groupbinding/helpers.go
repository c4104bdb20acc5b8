// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package groupbinding

import (
	"encoding/json"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

func firstArg(raw json.RawMessage) (string, error) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", &pkgerrors.ValidationError{Field: "arguments", Message: err.Error()}
	}
	if len(args) == 0 {
		return "", &pkgerrors.ValidationError{Field: "arguments", Message: "expected at least one argument"}
	}
	return args[0], nil
}

func allArgs(raw json.RawMessage) ([]string, error) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &pkgerrors.ValidationError{Field: "arguments", Message: err.Error()}
	}
	return args, nil
}
