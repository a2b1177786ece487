package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/spreadsheets"

	"trips/entity"
)

const notificationsSheet = "user-notifications"

// NotificationClient appends notifications to a shared sheet, from which they are delivered to users.
type NotificationClient struct {
	clients *clients.Clients
}

func NewNotificationClient(clients *clients.Clients) NotificationClient {
	if clients == nil {
		panic("missing clients")
	}

	return NotificationClient{
		clients: clients,
	}
}

func (c NotificationClient) Notify(ctx context.Context, userID, message string, severity entity.Severity) error {
	resp, err := c.clients.Spreadsheets.PostSheetsSheetRowsWithResponse(ctx, notificationsSheet, spreadsheets.PostSheetsSheetRowsJSONRequestBody{
		Columns: []string{userID, string(severity), message},
	})
	if err != nil {
		return err
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status code while sending notification: %d", resp.StatusCode())
	}

	return nil
}
