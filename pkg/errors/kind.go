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

package errors

import "strings"

// Kind classifies a structured error. The set is closed: every *Error
// carries exactly one of the constants below.
type Kind string

const (
	// Storage errors.

	// KindStorageUnavailable indicates the key-value store cannot be reached.
	KindStorageUnavailable Kind = "storage-unavailable"
	// KindStorageQuotaExceeded indicates the store rejected a write for lack of space.
	KindStorageQuotaExceeded Kind = "storage-quota-exceeded"
	// KindStorageParseError indicates stored content could not be decoded.
	KindStorageParseError Kind = "storage-parse-error"
	// KindStorageWriteError indicates a write to the store failed.
	KindStorageWriteError Kind = "storage-write-error"

	// Network errors.

	// KindNetworkError indicates a transport-level failure.
	KindNetworkError Kind = "network-error"
	// KindNetworkTimeout indicates a request exceeded its time limit.
	KindNetworkTimeout Kind = "network-timeout"
	// KindNetworkOffline indicates there is no connectivity at all.
	KindNetworkOffline Kind = "network-offline"

	// API errors.

	// KindAPIError is a non-specific API failure.
	KindAPIError Kind = "api-error"
	// KindAPINotFound maps HTTP 404.
	KindAPINotFound Kind = "api-not-found"
	// KindAPIUnauthorized maps HTTP 401.
	KindAPIUnauthorized Kind = "api-unauthorized"
	// KindAPIForbidden maps HTTP 403.
	KindAPIForbidden Kind = "api-forbidden"
	// KindAPIValidation maps HTTP 422.
	KindAPIValidation Kind = "api-validation"
	// KindAPIServerError maps HTTP 5xx.
	KindAPIServerError Kind = "api-server-error"

	// Data errors.

	// KindDataInvalid indicates data failed validation.
	KindDataInvalid Kind = "data-invalid"
	// KindDataMissing indicates required data is absent.
	KindDataMissing Kind = "data-missing"
	// KindDataCorrupted indicates data is structurally damaged.
	KindDataCorrupted Kind = "data-corrupted"

	// Component errors.

	// KindComponentRender indicates a component failed while rendering.
	KindComponentRender Kind = "component-render-error"
	// KindComponentLifecycle indicates a component failed in a lifecycle hook.
	KindComponentLifecycle Kind = "component-lifecycle-error"

	// Map errors.

	// KindMapInit indicates the map could not be initialized.
	KindMapInit Kind = "map-init-error"
	// KindMapGeocoding indicates an address lookup failed.
	KindMapGeocoding Kind = "map-geocoding-error"
	// KindMapMarker indicates a marker could not be placed.
	KindMapMarker Kind = "map-marker-error"

	// KindUnknown is used for anything that could not be classified.
	KindUnknown Kind = "unknown"
)

// Subsystem groups kinds by the part of the system that raises them.
type Subsystem string

const (
	SubsystemStorage   Subsystem = "storage"
	SubsystemNetwork   Subsystem = "network"
	SubsystemAPI       Subsystem = "api"
	SubsystemData      Subsystem = "data"
	SubsystemComponent Subsystem = "component"
	SubsystemMap       Subsystem = "map"
	SubsystemUnknown   Subsystem = "unknown"
)

var allKinds = []Kind{
	KindStorageUnavailable,
	KindStorageQuotaExceeded,
	KindStorageParseError,
	KindStorageWriteError,
	KindNetworkError,
	KindNetworkTimeout,
	KindNetworkOffline,
	KindAPIError,
	KindAPINotFound,
	KindAPIUnauthorized,
	KindAPIForbidden,
	KindAPIValidation,
	KindAPIServerError,
	KindDataInvalid,
	KindDataMissing,
	KindDataCorrupted,
	KindComponentRender,
	KindComponentLifecycle,
	KindMapInit,
	KindMapGeocoding,
	KindMapMarker,
	KindUnknown,
}

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Subsystem returns the group a kind belongs to.
func (k Kind) Subsystem() Subsystem {
	s := string(k)
	switch {
	case strings.HasPrefix(s, "storage-"):
		return SubsystemStorage
	case strings.HasPrefix(s, "network-"):
		return SubsystemNetwork
	case strings.HasPrefix(s, "api-"):
		return SubsystemAPI
	case strings.HasPrefix(s, "data-"):
		return SubsystemData
	case strings.HasPrefix(s, "component-"):
		return SubsystemComponent
	case strings.HasPrefix(s, "map-"):
		return SubsystemMap
	default:
		return SubsystemUnknown
	}
}

// ParseKind converts a string to a Kind. Unrecognized values map to KindUnknown.
func ParseKind(s string) Kind {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k
	}
	return KindUnknown
}
