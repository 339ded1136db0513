// ABOUTME: Remote procedure calls against the backend RPC surface
// ABOUTME: admin_list_users returns user rows that embed the total matching count

package backend

import "context"

// AdminListUsers invokes the admin_list_users procedure. filterUserID narrows
// the listing to a single identifier when non-empty (the caller validates the
// shape first). The total matching count is carried inside every row; an
// empty page means a total of zero.
func (c *Client) AdminListUsers(ctx context.Context, token string, limit, offset int, filterUserID string) ([]AdminUserRow, int64, error) {
	payload := map[string]any{
		"limit_count":  limit,
		"offset_count": offset,
	}
	if filterUserID != "" {
		payload["filter_user_id"] = filterUserID
	} else {
		payload["filter_user_id"] = nil
	}

	var rows []AdminUserRow
	url := c.baseURL + "/rest/v1/rpc/admin_list_users"
	if err := c.postJSON(ctx, url, token, payload, &rows); err != nil {
		return nil, 0, err
	}

	var total int64
	if len(rows) > 0 {
		total = rows[0].TotalCount
	}
	return rows, total, nil
}
