// Copyright 2025 Lexrag Authors
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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidRole indicates a Role value outside system/human/assistant.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrEmptyContent indicates a message with no content.
	ErrEmptyContent = errors.New("message content cannot be empty")

	// ErrEmptyQuery indicates a query turn with no query text.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptyChatID indicates a query turn with no conversation id.
	ErrEmptyChatID = errors.New("chat id cannot be empty")
)

// Validate checks that a message has a known role and non-empty content.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleHuman, RoleAssistant:
	default:
		return ErrInvalidRole
	}
	if m.Content == "" {
		return ErrEmptyContent
	}
	return nil
}
