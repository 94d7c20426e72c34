package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrSpaceNotFound 目录服务中不存在该空间
var ErrSpaceNotFound = errors.New("space not found")

// Element 空间内静态可碰撞物件；只用它的包围盒，imageUrl 仅供前端展示
type Element struct {
	ID       string
	X        int
	Y        int
	Width    int
	Height   int
	ImageURL string
}

// SpaceLayout 目录服务返回的静态布局（边界 + 物件集合）
// 布局在空间生命周期内不可变，由注册表缓存，进程内每个空间至多拉取一次
type SpaceLayout struct {
	Width    int
	Height   int
	Elements []Element
}

// DirectoryClient 空间目录客户端：按 id 解析空间静态布局
// 只读、每个空间一次，失败只影响当次加入，不影响服务进程
type DirectoryClient struct {
	baseURL string
	httpc   *http.Client
}

func NewDirectoryClient(baseURL string) *DirectoryClient {
	return &DirectoryClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}
}

// 目录服务的响应结构：GET {base}/space/{id}
// {"space":{"width":100,"height":100,"elements":[{"id":...,"x":...,"y":...,"element":{"width":...,"height":...,"imageUrl":...}}]}}
type directoryResponse struct {
	Space struct {
		Width    int `json:"width"`
		Height   int `json:"height"`
		Elements []struct {
			ID      string `json:"id"`
			X       int    `json:"x"`
			Y       int    `json:"y"`
			Element struct {
				Width    int    `json:"width"`
				Height   int    `json:"height"`
				ImageURL string `json:"imageUrl"`
			} `json:"element"`
		} `json:"elements"`
	} `json:"space"`
}

// FetchSpace 拉取空间布局；404 映射为 ErrSpaceNotFound
func (d *DirectoryClient) FetchSpace(ctx context.Context, spaceID string) (*SpaceLayout, error) {
	url := fmt.Sprintf("%s/space/%s", d.baseURL, spaceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("directory request: %w", err)
	}
	resp, err := d.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory fetch %s: %w", spaceID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("space %q: %w", spaceID, ErrSpaceNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("directory fetch %s: unexpected status %d", spaceID, resp.StatusCode)
	}

	var body directoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("directory decode %s: %w", spaceID, err)
	}

	layout := &SpaceLayout{
		Width:    body.Space.Width,
		Height:   body.Space.Height,
		Elements: make([]Element, 0, len(body.Space.Elements)),
	}
	for _, e := range body.Space.Elements {
		layout.Elements = append(layout.Elements, Element{
			ID:       e.ID,
			X:        e.X,
			Y:        e.Y,
			Width:    e.Element.Width,
			Height:   e.Element.Height,
			ImageURL: e.Element.ImageURL,
		})
	}
	return layout, nil
}
