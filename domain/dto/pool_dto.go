package dto

// CredentialStatus mirrors one credential of the search pool.
type CredentialStatus struct {
	Key       string `json:"key"`
	UsedUnits int64  `json:"used_units"`
	Active    bool   `json:"active"`
}

type ProxyStatus struct {
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// PoolStatusResponse is returned by the pool status endpoint.
type PoolStatusResponse struct {
	Credentials       []CredentialStatus `json:"credentials"`
	ActiveCredentials int                `json:"active_credentials"`
	Proxies           []ProxyStatus      `json:"proxies"`
	ActiveProxies     int                `json:"active_proxies"`
}
