package trackerapi

import "context"

type backupRef struct {
	Filename string `json:"filename"`
}

func (c *Client) Backups(ctx context.Context) ([]Backup, error) {
	var result struct {
		Success bool     `json:"success"`
		Backups []Backup `json:"backups"`
		Error   string   `json:"error"`
	}
	if err := c.getJSON(ctx, "/backups", nil, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, &RejectedError{Message: result.Error}
	}
	return result.Backups, nil
}

func (c *Client) CreateBackup(ctx context.Context, name string) (string, error) {
	return c.write(ctx, "/backups/create", map[string]string{"name": name}, "Failed to create backup")
}

func (c *Client) RestoreBackup(ctx context.Context, name string) (string, error) {
	return c.write(ctx, "/backups/restore", backupRef{Filename: name}, "Failed to restore backup")
}

func (c *Client) DeleteBackup(ctx context.Context, name string) (string, error) {
	return c.write(ctx, "/backups/delete", backupRef{Filename: name}, "Failed to delete backup")
}
