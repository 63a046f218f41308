// Copyright 2025 Edgeo SCADA
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

package packet

import "strings"

// ValidateTopicName reports whether name is a legal PUBLISH topic name:
// non-empty, does not start with "/", free of wildcard characters, and
// free of the NUL byte.
func ValidateTopicName(name string) error {
	if name == "" {
		return malformed("topic name must not be empty")
	}
	if strings.HasPrefix(name, "/") {
		return malformed("topic name must not start with /")
	}
	if strings.ContainsAny(name, "#+") {
		return malformed("topic name must not contain wildcard characters")
	}
	if strings.ContainsRune(name, 0) {
		return malformed("topic name must not contain a NUL byte")
	}
	return nil
}

// ValidateTopicFilter reports whether filter is a legal SUBSCRIBE
// topic filter. A filter consisting solely of "/" is permitted: it
// denotes two levels, both with an empty name, which OASIS
// mqtt-v5.0 does not forbid (see SPEC_FULL.md Open Question (b)).
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return malformed("topic filter must not be empty")
	}
	if strings.ContainsRune(filter, 0) {
		return malformed("topic filter must not contain a NUL byte")
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if level == "#" {
			if i != len(levels)-1 {
				return malformed("# wildcard must be the last level")
			}
			continue
		}
		if level == "+" {
			continue
		}
		if strings.ContainsAny(level, "#+") {
			return malformed("wildcard characters must occupy an entire level")
		}
	}
	return nil
}

// IsSharedSubscription reports whether filter uses the "$share/<group>/"
// shared-subscription prefix.
func IsSharedSubscription(filter string) bool {
	return strings.HasPrefix(filter, "$share/")
}
