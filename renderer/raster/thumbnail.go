package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// EncodePNG 将位图编码为 PNG。
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return nil
}

// Thumbnail 等比缩小到最长边不超过 bound，小图保持原尺寸。
func Thumbnail(img image.Image, bound int) image.Image {
	return imaging.Fit(img, bound, bound, imaging.Lanczos)
}

// PreviewDataURI 返回缩略图的 data:image/png;base64 编码。
func PreviewDataURI(img image.Image, bound int) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, Thumbnail(img, bound)); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// LoadTemplate 解码模板图片。
func LoadTemplate(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取模板 %s 失败: %w", path, err)
	}
	return img, nil
}
