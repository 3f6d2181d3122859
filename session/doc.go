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


// Package session implements the per-conversation state machine that drives
// each chat turn, together with the pluggable transcript store behind it.
//
// The machine is a single linear state machine per conversation id
// (Start → Chatbot → End): every Step runs to completion synchronously,
// trims the stored transcript to a token budget, invokes the chat model with
// the augmented prompt, and persists only the untouched user utterance and
// the model reply. At most one Step mutates a given conversation at a time;
// steps for different conversation ids proceed in parallel.
//
// Stores: MemoryStore keeps transcripts in-process (the default); the
// session/badger sub-package persists them durably.
package session
