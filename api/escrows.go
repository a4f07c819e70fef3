package api

import (
	"context"
	"net/url"
	"time"
)

// Escrow is an escrow transaction backing a contract. Funds move through the
// states pending -> funded -> released, or into disputed.
type Escrow struct {
	ID         string     `json:"id"`
	ContractID string     `json:"contract_id"`
	Status     string     `json:"status"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

// EscrowEvent is one entry in an escrow's audit history.
type EscrowEvent struct {
	ID        string     `json:"id"`
	EscrowID  string     `json:"escrow_id"`
	Action    string     `json:"action"`
	ActorID   string     `json:"actor_id"`
	Note      string     `json:"note,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// EscrowRequest is the payload for opening an escrow on a contract.
type EscrowRequest struct {
	ContractID string  `json:"contract_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

// EscrowsService provides access to the escrow endpoints.
type EscrowsService struct {
	client *Client
}

// Escrows returns the escrow service.
func (c *Client) Escrows() *EscrowsService {
	return &EscrowsService{client: c}
}

func (s *EscrowsService) List(ctx context.Context, status string) ([]Escrow, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": []string{status}}
	}
	var escrows []Escrow
	if err := s.client.get(ctx, "/escrows", q, &escrows); err != nil {
		return nil, err
	}
	return escrows, nil
}

func (s *EscrowsService) Get(ctx context.Context, id string) (*Escrow, error) {
	var escrow Escrow
	if err := s.client.get(ctx, "/escrows/"+id, nil, &escrow); err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (s *EscrowsService) Create(ctx context.Context, req EscrowRequest) (*Escrow, error) {
	var escrow Escrow
	if err := s.client.post(ctx, "/escrows", req, &escrow); err != nil {
		return nil, err
	}
	return &escrow, nil
}

// Release instructs the server to release the escrowed funds to the seller.
func (s *EscrowsService) Release(ctx context.Context, id string) (*Escrow, error) {
	var escrow Escrow
	if err := s.client.post(ctx, "/escrows/"+id+"/release", nil, &escrow); err != nil {
		return nil, err
	}
	return &escrow, nil
}

// Dispute flags the escrow for manual review with the given reason.
func (s *EscrowsService) Dispute(ctx context.Context, id, reason string) (*Escrow, error) {
	body := map[string]string{"reason": reason}
	var escrow Escrow
	if err := s.client.post(ctx, "/escrows/"+id+"/dispute", body, &escrow); err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (s *EscrowsService) History(ctx context.Context, id string) ([]EscrowEvent, error) {
	var events []EscrowEvent
	if err := s.client.get(ctx, "/escrows/"+id+"/history", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}
