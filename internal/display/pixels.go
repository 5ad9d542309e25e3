package display

import "image"

// ToBGRA copies frame into dst as top-down premultiplied BGRA, the layout
// Windows layered windows expect. dst must hold at least 4*w*h bytes.
func ToBGRA(dst []byte, frame *image.RGBA) {
	b := frame.Bounds()
	w := b.Dx()
	i := 0
	for y := 0; y < b.Dy(); y++ {
		row := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			dst[i+0] = row[x+2]
			dst[i+1] = row[x+1]
			dst[i+2] = row[x+0]
			dst[i+3] = row[x+3]
			i += 4
		}
	}
}
