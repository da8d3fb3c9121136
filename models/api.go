package models

// Response envelopes for the field-operations REST API.

type ActiveUsersResponse struct {
	Success bool           `json:"success"`
	Users   []UserLocation `json:"users"`
}

type ActiveSessionsResponse struct {
	Success  bool           `json:"success"`
	Sessions []SessionRoute `json:"sessions"`
}

type UserRouteResponse struct {
	Success bool            `json:"success"`
	Data    []LocationPoint `json:"data"`
}

type FormMarkersResponse struct {
	Success bool         `json:"success"`
	Forms   []FormMarker `json:"forms"`
}

type UserSearchResponse struct {
	Success bool   `json:"success"`
	Data    []User `json:"data"`
}

type EvidenceUploadResponse struct {
	URL  string `json:"url"`
	Ruta string `json:"ruta"`
}

type EvidenceDeleteResponse struct {
	Success bool `json:"success"`
}
