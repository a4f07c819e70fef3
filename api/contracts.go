package api

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// Contract is a trade contract between a buyer and a seller.
type Contract struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	BuyerID   string     `json:"buyer_id"`
	SellerID  string     `json:"seller_id"`
	Amount    float64    `json:"amount"`
	Currency  string     `json:"currency"`
	Terms     string     `json:"terms,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
}

// ContractRequest is the payload for creating a contract.
type ContractRequest struct {
	Title    string  `json:"title"`
	SellerID string  `json:"seller_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Terms    string  `json:"terms,omitempty"`
}

// ContractUpdate is a partial update; nil fields are left unchanged.
type ContractUpdate struct {
	Title  *string  `json:"title,omitempty"`
	Amount *float64 `json:"amount,omitempty"`
	Terms  *string  `json:"terms,omitempty"`
}

// ContractFilters narrows List results.
type ContractFilters struct {
	Status  string
	Page    int
	PerPage int
}

func (f *ContractFilters) query() url.Values {
	if f == nil {
		return nil
	}
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	return q
}

// ContractsService provides access to the contract endpoints.
type ContractsService struct {
	client *Client
}

// Contracts returns the contract service.
func (c *Client) Contracts() *ContractsService {
	return &ContractsService{client: c}
}

func (s *ContractsService) List(ctx context.Context, filters *ContractFilters) ([]Contract, error) {
	var contracts []Contract
	if err := s.client.get(ctx, "/contracts", filters.query(), &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (s *ContractsService) Get(ctx context.Context, id string) (*Contract, error) {
	var contract Contract
	if err := s.client.get(ctx, "/contracts/"+id, nil, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

func (s *ContractsService) Create(ctx context.Context, req ContractRequest) (*Contract, error) {
	var contract Contract
	if err := s.client.post(ctx, "/contracts", req, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

func (s *ContractsService) Update(ctx context.Context, id string, update ContractUpdate) (*Contract, error) {
	var contract Contract
	if err := s.client.put(ctx, "/contracts/"+id, update, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

func (s *ContractsService) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/contracts/"+id)
}

// Sign marks the contract as signed by the current user.
func (s *ContractsService) Sign(ctx context.Context, id string) (*Contract, error) {
	var contract Contract
	if err := s.client.post(ctx, "/contracts/"+id+"/sign", nil, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}
