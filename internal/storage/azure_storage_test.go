package storage

import "testing"

func TestParseBlobURL(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		wantContainer string
		wantBlob      string
		wantErr       bool
	}{
		{
			name:          "Path form",
			url:           "https://acct.blob.core.windows.net/snapshots/gate-1/latest.jpg",
			wantContainer: "snapshots",
			wantBlob:      "gate-1/latest.jpg",
		},
		{
			name:          "Query form",
			url:           "https://acct.blob.core.windows.net/snapshots?blob=latest.png",
			wantContainer: "snapshots",
			wantBlob:      "latest.png",
		},
		{name: "Missing blob", url: "https://acct.blob.core.windows.net/snapshots", wantErr: true},
		{name: "Missing container", url: "https://acct.blob.core.windows.net/", wantErr: true},
		{name: "Malformed", url: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container, blob, err := ParseBlobURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if container != tt.wantContainer || blob != tt.wantBlob {
				t.Errorf("Got %q/%q, want %q/%q", container, blob, tt.wantContainer, tt.wantBlob)
			}
		})
	}
}

func TestNewAzureBlobFetcher_RejectsBadCredentials(t *testing.T) {
	if _, err := NewAzureBlobFetcher("", "a2V5", 0); err == nil {
		t.Error("Expected error for empty account name")
	}
	if _, err := NewAzureBlobFetcher("acct", "%%not-base64%%", 0); err == nil {
		t.Error("Expected error for undecodable account key")
	}
	if _, err := NewAzureBlobFetcher("acct", "a2V5", 0); err != nil {
		t.Errorf("Unexpected error for valid key: %v", err)
	}
}
