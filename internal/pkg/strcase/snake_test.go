package strcase

import "testing"

func TestToLowerSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "Subject", want: "subject"},
		{in: "CSVFile", want: "csv_file"},
		{in: "userID", want: "user_id"},
		{in: "HTTPServer", want: "http_server"},
		{in: "RecipientsToken", want: "recipients_token"},
		{in: "Line2Body", want: "line2_body"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToLowerSnake(tt.in); got != tt.want {
				t.Fatalf("ToLowerSnake(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
