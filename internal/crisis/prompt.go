package crisis

// MentalHealthHotline is the number surfaced to the model for HIGH and
// CRITICAL messages.
const MentalHealthHotline = "1800-599-920"

const criticalAddition = `
QUAN TRỌNG: User đang trong tình trạng KHỦNG HOẢNG NGHIÊM TRỌNG.
1. Thể hiện sự quan tâm sâu sắc
2. Hỏi về sự an toàn: "Bạn có an toàn ngay bây giờ không?"
3. Ở bên cạnh họ: "Mình ở đây với bạn"
4. Đề nghị hotline: "Nếu bạn cần hỗ trợ ngay, gọi ` + MentalHealthHotline + ` (24/7, miễn phí)"
5. KHÔNG kết thúc cuộc trò chuyện đột ngột
`

const highAddition = `
QUAN TRỌNG: User đang có dấu hiệu khủng hoảng.
1. Thể hiện sự lo lắng và quan tâm
2. Xác nhận cảm xúc của họ
3. Nhẹ nhàng đề cập đến hỗ trợ: "Nếu bạn cần nói chuyện với người có thể giúp đỡ chuyên sâu, có đường dây ` + MentalHealthHotline + `"
4. Tiếp tục lắng nghe và đồng hành
`

const mediumAddition = `
User đang có dấu hiệu lo lắng hoặc buồn bã ở mức trung bình.
Hãy thể hiện sự thấu hiểu sâu sắc và khám phá thêm về cảm xúc của họ.
`

const lowAddition = `
User có vẻ đang stress nhẹ hoặc mệt mỏi.
Hãy lắng nghe và thể hiện sự đồng cảm.
`

// PromptAddition returns the system-prompt text that tells the model how to
// respond at the given level.  None yields an empty string.
func PromptAddition(level Severity) string {
	switch level {
	case Critical:
		return criticalAddition
	case High:
		return highAddition
	case Medium:
		return mediumAddition
	case Low:
		return lowAddition
	default:
		return ""
	}
}
