package payments

import "testing"

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantKind   Kind
		wantRef    string
		wantAmount int64
		wantUser   string
		wantErr    bool
	}{
		{
			name:       "activation paid",
			payload:    `{"type":"activation.paid","reference":"pi_1","amount_cents":3500,"metadata":{"user_id":"u1"}}`,
			wantKind:   KindActivationPaid,
			wantRef:    "pi_1",
			wantAmount: 3500,
			wantUser:   "u1",
		},
		{
			name:     "escrow captured",
			payload:  `{"type":"escrow.captured","reference":"pi_2","amount_cents":72000,"metadata":{"contract_id":"c1"}}`,
			wantKind: KindEscrowCaptured,
			wantRef:  "pi_2",

			wantAmount: 72000,
		},
		{
			name:       "unrecognized type is tolerated",
			payload:    `{"type":"payout.settled","reference":"pi_3","amount_cents":100}`,
			wantKind:   KindUnknown,
			wantRef:    "pi_3",
			wantAmount: 100,
		},
		{
			name:    "missing reference",
			payload: `{"type":"activation.paid","amount_cents":3500}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			payload: `{"type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseEvent() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if event.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", event.Kind, tt.wantKind)
			}
			if event.IntentReference != tt.wantRef {
				t.Errorf("IntentReference = %q, want %q", event.IntentReference, tt.wantRef)
			}
			if event.AmountCents != tt.wantAmount {
				t.Errorf("AmountCents = %d, want %d", event.AmountCents, tt.wantAmount)
			}
			if event.UserID != tt.wantUser {
				t.Errorf("UserID = %q, want %q", event.UserID, tt.wantUser)
			}
		})
	}
}
