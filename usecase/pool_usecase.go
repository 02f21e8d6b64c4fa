package usecase

import (
	"vocab-bot/domain/dto"
	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/keypool"
)

// IPoolUsecase reports the state of the credential and proxy pools.
type IPoolUsecase interface {
	Status() dto.PoolStatusResponse
}

type PoolUsecase struct {
	credentials *keypool.CredentialPool[repository.IVideoSearch]
	proxies     *keypool.ProxyPool
}

func NewPoolUsecase(credentials *keypool.CredentialPool[repository.IVideoSearch], proxies *keypool.ProxyPool) IPoolUsecase {
	return &PoolUsecase{credentials: credentials, proxies: proxies}
}

func (u *PoolUsecase) Status() dto.PoolStatusResponse {
	res := dto.PoolStatusResponse{
		Credentials: []dto.CredentialStatus{},
		Proxies:     []dto.ProxyStatus{},
	}
	for _, c := range u.credentials.Snapshot() {
		res.Credentials = append(res.Credentials, dto.CredentialStatus(c))
		if c.Active {
			res.ActiveCredentials++
		}
	}
	for _, p := range u.proxies.Snapshot() {
		res.Proxies = append(res.Proxies, dto.ProxyStatus(p))
		if p.Active {
			res.ActiveProxies++
		}
	}
	return res
}
